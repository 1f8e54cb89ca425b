package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contacthub/internal/config"
	"gitlab.com/dirk.krummacker/contacthub/internal/store"
	"gorm.io/driver/postgres"
)

// Usage example on the command line:
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go --file=../../scripts/database.sql
// > DBDRIVER=postgres DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go
func main() {
	var configPath, file string
	cmd := &cobra.Command{
		Use:          "migration",
		Short:        "Create the tables of the contacts service",
		Long:         "For MySQL the statements of the SQL file are executed one by one. For PostgreSQL the tables are migrated from the data model and the file is ignored.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.DBDriver == config.DriverPostgres {
				return migratePostgres(cfg)
			}
			return migrateMySQL(cfg, file)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML configuration file")
	cmd.Flags().StringVar(&file, "file", "database.sql", "the sql file to execute")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func migratePostgres(cfg *config.Config) error {
	s, err := store.NewPostgresStore(postgres.Open(cfg.DSN()))
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Migrate()
}

func migrateMySQL(cfg *config.Config, file string) error {
	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	readFile, err := os.Open(file) // nosemgrep
	if err != nil {
		return err
	}
	defer readFile.Close()

	fileScanner := bufio.NewScanner(readFile)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	count := 0
	for fileScanner.Scan() {
		line := fileScanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			if _, err := db.Exec(builder.String()); err != nil {
				return fmt.Errorf("statement %d failed: %w", count+1, err)
			}
			count++
			builder = strings.Builder{}
		}
	}
	if err := fileScanner.Err(); err != nil {
		return err
	}
	fmt.Printf("Executed %d statements from %s\n", count, file)
	return nil
}
