package db

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// addColumnPattern matches "ALTER TABLE t ADD COLUMN c", which SQLite cannot make conditional.
var addColumnPattern = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+("[^"]+"|\S+)\s+ADD\s+COLUMN\s+("[^"]+"|\S+)`)

// migration is one forward-only SQL file named <version>_<description>.sql.
type migration struct {
	Version    int
	Name       string
	Statements []string
}

// appliedMigration is a row of schema_migrations.
type appliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (appliedMigration) TableName() string {
	return "schema_migrations"
}

// runMigrations applies the migrations in files that are not recorded yet, each in its own
// transaction, and returns the names of those it applied in version order.
func runMigrations(database *gorm.DB, files fs.FS) ([]string, error) {
	if err := database.AutoMigrate(&appliedMigration{}); err != nil {
		return nil, fmt.Errorf("prepare schema_migrations: %w", err)
	}

	available, err := loadMigrations(files)
	if err != nil {
		return nil, err
	}

	var recorded []appliedMigration
	if err := database.Find(&recorded).Error; err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	done := make(map[int]bool, len(recorded))
	for _, row := range recorded {
		done[row.Version] = true
	}

	applied := []string{}
	for _, next := range available {
		if done[next.Version] {
			continue
		}
		if err := database.Transaction(func(tx *gorm.DB) error {
			return applyMigration(tx, next)
		}); err != nil {
			return applied, err
		}
		applied = append(applied, next.Name)
	}
	return applied, nil
}

func loadMigrations(files fs.FS) ([]migration, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	migrations := make([]migration, 0, len(names))
	owners := make(map[int]string, len(names))
	for _, name := range names {
		prefix, _, ok := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a positive version and an underscore", name)
		}
		if owner, taken := owners[version]; taken {
			return nil, fmt.Errorf("migration version %d used by %s and %s", version, owner, name)
		}
		owners[version] = name

		raw, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		statements := splitStatements(string(raw))
		if len(statements) == 0 {
			return nil, fmt.Errorf("migration %s has no statements", name)
		}
		migrations = append(migrations, migration{Version: version, Name: name, Statements: statements})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func applyMigration(tx *gorm.DB, next migration) error {
	for _, statement := range next.Statements {
		if table, column, ok := addedColumn(statement); ok && tx.Migrator().HasColumn(table, column) {
			continue
		}
		if err := tx.Exec(statement).Error; err != nil {
			return fmt.Errorf("migration %s: %w", next.Name, err)
		}
	}

	record := appliedMigration{Version: next.Version, Name: next.Name, AppliedAt: time.Now().UTC()}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("record migration %s: %w", next.Name, err)
	}
	return nil
}

// splitStatements cuts a file on semicolons. Migrations must not put semicolons inside literals.
func splitStatements(raw string) []string {
	var statements []string
	for _, part := range strings.Split(raw, ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

func addedColumn(statement string) (table string, column string, ok bool) {
	matches := addColumnPattern.FindStringSubmatch(statement)
	if matches == nil {
		return "", "", false
	}
	return strings.Trim(matches[1], `"`), strings.Trim(matches[2], `"`), true
}
