package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-explorer",
	Short: "A CLI tool for face similarity search over a photo archive",
	Long: `Face Explorer is a CLI application that finds photos of a person
in a media archive. It sends a face crop to an embedding server, runs a
vector similarity search and lets you browse, preview and download the
matching photos.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
