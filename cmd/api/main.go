package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/daymark/core/cmd/api/commands"
)

// @title Daymark API
// @version 1.0
// @description Dual-mode task and note service with guest and account storage

// @contact.name Daymark
// @contact.url https://github.com/daymark/core

// @license.name MIT
// @license.url https://github.com/daymark/core/blob/main/LICENSE

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "daymark",
		Short: "Daymark API Server",
		Long:  `Daymark is a task-list and notes service that stores guest data locally and account data in the remote document store, switching live as sessions change.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
