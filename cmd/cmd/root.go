/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PaultheAICoder/AInewsletter-sub001/cmd/handlers"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "briefly",
	Short: "Smart backfill pipeline for podcast/video ingestion, relevance scoring, and newsletter generation.",
	Long: `briefly discovers episodes from configured feeds, transcribes and scores
them for relevance against configured topics, tracks evolving story arcs
across episodes, and assembles them into a newsletter issue.

Run "briefly run" to drive one backfill pass, "briefly dedup" to consolidate
near-duplicate topic mentions, and "briefly newsletter generate/send" to
produce and deliver an issue.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeForError(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: pipeline.yaml in the working directory)")

	rootCmd.AddCommand(handlers.NewRunCmd(&cfgFile))
	rootCmd.AddCommand(handlers.NewDedupCmd(&cfgFile))
	rootCmd.AddCommand(handlers.NewNewsletterCmd(&cfgFile))
}

// exitCodeForError maps a command's terminal error to the process exit
// code contract: 0 success, 1 a run that completed with worker
// failures, 2 environment/configuration errors that prevented the run
// from starting at all.
func exitCodeForError(err error) int {
	if coder, ok := err.(interface{ ExitCode() int }); ok {
		return coder.ExitCode()
	}
	return 1
}
