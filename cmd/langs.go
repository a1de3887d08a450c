package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

var langsCmd = &cobra.Command{
	Use:   "langs",
	Short: "List the languages an engine supports",
	Args:  cobra.NoArgs,
	RunE:  runLangs,
}

var (
	langsEngine string
	langsLevel  string
)

func init() {
	RootCmd.AddCommand(langsCmd)

	langsCmd.Flags().StringVar(&langsEngine, "engine", engineFromEnv(), "Engine to query")
	langsCmd.Flags().StringVar(&langsLevel, "level", "accurate", "Recognition level: accurate or fast")
}

func runLangs(cmd *cobra.Command, args []string) error {
	level, err := recognition.ParseLevel(langsLevel)
	if err != nil {
		return err
	}
	session, closeEngine, err := newSession(langsEngine)
	if err != nil {
		return err
	}
	defer closeEngine()

	tags, err := session.SupportedLanguages(cmd.Context(), level)
	if err != nil {
		return err
	}
	return writeLanguages(cmd.OutOrStdout(), tags)
}

func writeLanguages(w io.Writer, tags []string) error {
	for _, tag := range tags {
		if _, err := fmt.Fprintf(w, "%-12s %s\n", tag, languageName(tag)); err != nil {
			return err
		}
	}
	return nil
}

// languageName returns the English display name of tag, or "" when the tag
// is not BCP-47 (for example tesseract's "chi_sim").
func languageName(tag string) string {
	if strings.Contains(tag, "_") {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(t)
}
