package testdata

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// GeneratorConfig configures marketplace data generation
type GeneratorConfig struct {
	Users           int
	DeveloperShare  float64 // 0.0-1.0 share of users holding the developer role
	AppsPerDev      int
	PurchaseChance  float64 // probability a user buys any given app month
	ActionsPerUser  int     // activity events per user per active month
	MonthsOfHistory int
	Seed            int64 // 0 means non-deterministic
}

// DefaultConfig generates a year of history for a mid-sized marketplace
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Users:           500,
		DeveloperShare:  0.1,
		AppsPerDev:      3,
		PurchaseChance:  0.15,
		ActionsPerUser:  6,
		MonthsOfHistory: 12,
	}
}

// User is a generated marketplace user row
type User struct {
	ID        string
	Email     string
	Role      string
	CreatedAt time.Time
}

// App is a generated app listing row
type App struct {
	ID        string
	OwnerID   string
	Name      string
	Category  string
	Price     float64
	CreatedAt time.Time
}

// Purchase is a generated purchase row
type Purchase struct {
	ID        string
	UserID    string
	AppID     string
	Amount    float64
	Status    string
	CreatedAt time.Time
}

// Activity is a generated activity log row
type Activity struct {
	UserID    string
	Action    string
	CreatedAt time.Time
}

// Dataset holds one generated marketplace snapshot
type Dataset struct {
	Users      []User
	Apps       []App
	Purchases  []Purchase
	Activities []Activity
}

var appCategories = []string{
	"productivity", "games", "finance", "health", "education",
	"photography", "music", "developer-tools", "social", "utilities",
}

// Category-flavored app name parts
var appNameParts = map[string]struct {
	Prefixes []string
	Suffixes []string
}{
	"productivity": {
		Prefixes: []string{"Swift", "Focus", "Daily", "Smart", "Quick", "Clear", "Simple", "Pro", "Master", "Flow"},
		Suffixes: []string{"Tasks", "Notes", "Planner", "Calendar", "Board", "Desk", "List", "Tracker"},
	},
	"games": {
		Prefixes: []string{"Pixel", "Mega", "Super", "Epic", "Retro", "Neon", "Cosmic", "Turbo", "Mighty", "Shadow"},
		Suffixes: []string{"Quest", "Runner", "Blast", "Arena", "Saga", "Wars", "Dash", "World"},
	},
	"finance": {
		Prefixes: []string{"Penny", "Budget", "Coin", "Wealth", "Money", "Smart", "Capital", "Ledger", "Vault", "Nest"},
		Suffixes: []string{"Wise", "Tracker", "Book", "Wallet", "Planner", "Guard", "Flow", "Watch"},
	},
	"health": {
		Prefixes: []string{"Fit", "Pulse", "Vital", "Active", "Daily", "Zen", "Pure", "Strong", "Fresh", "Peak"},
		Suffixes: []string{"Coach", "Track", "Log", "Timer", "Mind", "Steps", "Habit", "Life"},
	},
	"education": {
		Prefixes: []string{"Brainy", "Learn", "Study", "Smart", "Quick", "Lingua", "Math", "Science", "History", "Word"},
		Suffixes: []string{"Cards", "Tutor", "Quiz", "Academy", "Lab", "Path", "Drill", "Buddy"},
	},
	"photography": {
		Prefixes: []string{"Lens", "Snap", "Pixel", "Light", "Shutter", "Frame", "Glow", "Retro", "Prime", "Focus"},
		Suffixes: []string{"Edit", "Studio", "Cam", "Filter", "Shot", "Lab", "Gallery", "Grid"},
	},
	"music": {
		Prefixes: []string{"Beat", "Sound", "Echo", "Vinyl", "Bass", "Tempo", "Chord", "Wave", "Loop", "Tone"},
		Suffixes: []string{"Mixer", "Player", "Studio", "Tuner", "Box", "Deck", "Pad", "Stream"},
	},
	"developer-tools": {
		Prefixes: []string{"Code", "Git", "Dev", "Build", "Debug", "Stack", "Shell", "Byte", "Query", "Deploy"},
		Suffixes: []string{"Box", "Kit", "Bench", "Hub", "Pad", "Console", "Forge", "Lab"},
	},
	"social": {
		Prefixes: []string{"Chat", "Meet", "Link", "Circle", "Buzz", "Wave", "Ping", "Share", "Crowd", "Vibe"},
		Suffixes: []string{"Space", "Room", "Feed", "Connect", "Club", "Board", "Line", "Net"},
	},
	"utilities": {
		Prefixes: []string{"Handy", "Quick", "Easy", "Smart", "Pocket", "Ultra", "Mini", "Swiss", "Power", "Auto"},
		Suffixes: []string{"Tools", "Scanner", "Convert", "Cleaner", "Backup", "Clock", "Meter", "Switch"},
	},
}

var activityActions = []string{
	"app_open", "search", "install", "update", "review", "browse", "share", "uninstall",
}

var purchaseStatuses = []struct {
	Status string
	Weight float64
}{
	{"completed", 0.82},
	{"pending", 0.08},
	{"refunded", 0.10},
}

// GenerateAppName builds a category-flavored app name
func GenerateAppName(category string, rng *rand.Rand) string {
	parts, ok := appNameParts[category]
	if !ok {
		return fmt.Sprintf("%s %s", gofakeit.Company(), gofakeit.BuzzWord())
	}

	prefix := parts.Prefixes[rng.Intn(len(parts.Prefixes))]
	suffix := parts.Suffixes[rng.Intn(len(parts.Suffixes))]

	return fmt.Sprintf("%s %s", prefix, suffix)
}

func pickStatus(rng *rand.Rand) string {
	r := rng.Float64()
	acc := 0.0
	for _, s := range purchaseStatuses {
		acc += s.Weight
		if r < acc {
			return s.Status
		}
	}
	return "completed"
}

// Generate builds a full marketplace dataset. Registrations spread evenly
// over the history window; purchases and activity only occur after the
// member's registration.
func Generate(cfg GeneratorConfig) *Dataset {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	gofakeit.Seed(seed)

	now := time.Now().UTC()
	historyStart := now.AddDate(0, -cfg.MonthsOfHistory, 0)

	ds := &Dataset{}

	developers := int(float64(cfg.Users) * cfg.DeveloperShare)
	for i := 0; i < cfg.Users; i++ {
		role := "user"
		if i < developers {
			role = "developer"
		}

		registered := historyStart.Add(time.Duration(rng.Int63n(int64(now.Sub(historyStart)))))

		ds.Users = append(ds.Users, User{
			ID:        gofakeit.UUID(),
			Email:     strings.ToLower(gofakeit.Email()),
			Role:      role,
			CreatedAt: registered,
		})
	}

	for i := 0; i < developers; i++ {
		dev := ds.Users[i]
		for a := 0; a < cfg.AppsPerDev; a++ {
			category := appCategories[rng.Intn(len(appCategories))]
			ds.Apps = append(ds.Apps, App{
				ID:        gofakeit.UUID(),
				OwnerID:   dev.ID,
				Name:      GenerateAppName(category, rng),
				Category:  category,
				Price:     float64(rng.Intn(4900)+99) / 100,
				CreatedAt: dev.CreatedAt,
			})
		}
	}

	for _, u := range ds.Users {
		activeMonths := int(now.Sub(u.CreatedAt).Hours() / 24 / 30)
		for m := 0; m <= activeMonths; m++ {
			monthStart := u.CreatedAt.AddDate(0, m, 0)
			if monthStart.After(now) {
				break
			}

			if len(ds.Apps) > 0 && rng.Float64() < cfg.PurchaseChance {
				app := ds.Apps[rng.Intn(len(ds.Apps))]
				ds.Purchases = append(ds.Purchases, Purchase{
					ID:        gofakeit.UUID(),
					UserID:    u.ID,
					AppID:     app.ID,
					Amount:    app.Price,
					Status:    pickStatus(rng),
					CreatedAt: monthStart.Add(time.Duration(rng.Intn(24*28)) * time.Hour),
				})
			}

			actions := rng.Intn(cfg.ActionsPerUser + 1)
			for n := 0; n < actions; n++ {
				ds.Activities = append(ds.Activities, Activity{
					UserID:    u.ID,
					Action:    activityActions[rng.Intn(len(activityActions))],
					CreatedAt: monthStart.Add(time.Duration(rng.Intn(24*28)) * time.Hour),
				})
			}
		}
	}

	return ds
}

// Insert writes the dataset into Postgres inside a single transaction
func (d *Dataset) Insert(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range d.Users {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, email, role, created_at) VALUES ($1, $2, $3, $4)",
			u.ID, u.Email, u.Role, u.CreatedAt); err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}
	}

	for _, a := range d.Apps {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO apps (id, owner_id, name, category, price, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
			a.ID, a.OwnerID, a.Name, a.Category, a.Price, a.CreatedAt); err != nil {
			return fmt.Errorf("inserting app: %w", err)
		}
	}

	for _, p := range d.Purchases {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO purchases (id, user_id, app_id, amount, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
			p.ID, p.UserID, p.AppID, p.Amount, p.Status, p.CreatedAt); err != nil {
			return fmt.Errorf("inserting purchase: %w", err)
		}
	}

	for _, a := range d.Activities {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO activity_logs (user_id, action, created_at) VALUES ($1, $2, $3)",
			a.UserID, a.Action, a.CreatedAt); err != nil {
			return fmt.Errorf("inserting activity: %w", err)
		}
	}

	return tx.Commit()
}
