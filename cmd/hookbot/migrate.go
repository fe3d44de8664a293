package main

import (
	"github.com/spf13/cobra"

	"github.com/m3rciful/hookbot/core/app"
	"github.com/m3rciful/hookbot/core/database"
)

func newMigrateCmd() *cobra.Command {
	var seedFile string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the questions and stats tables and seed default questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer done()

			if err := database.RunMigrations(cfg.Database); err != nil {
				return err
			}
			if seedFile == "" {
				seedFile = cfg.Questions.SeedFile
			}
			if seedFile == "" {
				return nil
			}
			db, err := database.Connect(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return app.QuestionSeeder(seedFile).Seed(commandContext(cmd), db)
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed", "", "YAML file with extra questions to insert after migrating.")
	return cmd
}
