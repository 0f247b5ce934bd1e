package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/airyra/taskboard/internal/config"
	"github.com/airyra/taskboard/internal/server"
	"github.com/airyra/taskboard/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference task service",
	Long: `Run the reference task service in the foreground, backed by a SQLite
store. The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ResolveConfig()
		if err != nil {
			return err
		}

		bind, _ := cmd.Flags().GetString("bind")
		if bind == "" {
			bind = cfg.Address()
		}
		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath == "" {
			dbPath = cfg.StorePath
		}
		token := cfg.Token
		if tokenFlag != "" {
			token = tokenFlag
		}

		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}

		srv := server.New(bind, st,
			server.WithToken(token),
			server.WithLogger(log.New(os.Stderr, "[taskboard] ", log.LstdFlags)),
		)
		return srv.ListenAndServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("bind", "", "Address to listen on (default from config, localhost:7480)")
	serveCmd.Flags().String("db", "", "SQLite database path (default ~/.taskboard/taskboard.db)")
}
