package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/multichat-ai/multichat/internal/notes"
	"github.com/multichat-ai/multichat/pkg/types"
)

var (
	notesSession string
	notesPage    int
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage a session's notes",
	Long: `List, add and remove notes attached to a session. The backend is
selected by configuration: the remote notes endpoint, or a local mirror
under the data directory.`,
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a session's notes",
	RunE:  runNotesList,
}

var notesAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a note to a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesAdd,
}

var notesRmCmd = &cobra.Command{
	Use:   "rm <note-id>",
	Short: "Remove a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesRm,
}

func init() {
	notesCmd.PersistentFlags().StringVarP(&notesSession, "session", "s", "", "Session id (required)")
	notesCmd.MarkPersistentFlagRequired("session")
	notesListCmd.Flags().IntVar(&notesPage, "page", 1, "Page to fetch")

	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesAddCmd)
	notesCmd.AddCommand(notesRmCmd)
}

func runNotesList(cmd *cobra.Command, args []string) error {
	app := buildApp()

	page, err := app.notesStore.FetchPage(cmd.Context(), notesSession, notesPage, notes.DefaultPageLimit)
	if err != nil {
		return err
	}

	if len(page.Notes) == 0 {
		fmt.Println("No notes.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tTEXT\t")
	for _, n := range page.Notes {
		fmt.Fprintf(w, "%s\t%s\t\n", n.ID, n.Text)
	}
	fmt.Fprintf(w, "\npage %d of %d, %d notes total\n", page.Page, page.TotalPages, page.TotalNotes)
	return nil
}

func runNotesAdd(cmd *cobra.Command, args []string) error {
	app := buildApp()

	note := types.Note{
		ID:        uuid.NewString(),
		SessionID: notesSession,
		Text:      args[0],
		CreatedAt: time.Now().UnixMilli(),
	}

	created, err := app.notesStore.Create(cmd.Context(), note)
	if err != nil {
		return err
	}

	fmt.Println(created.ID)
	return nil
}

func runNotesRm(cmd *cobra.Command, args []string) error {
	app := buildApp()
	return app.notesStore.Delete(cmd.Context(), notesSession, args[0])
}
