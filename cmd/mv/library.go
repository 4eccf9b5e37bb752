package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediavault/internal/model"
)

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func formatFolder(id *int64) string {
	if id == nil {
		return "/"
	}
	return fmt.Sprintf("%d", *id)
}

func printFiles(w io.Writer, files []*model.File) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFOLDER\tVERSION\tSIZE\tTYPE\tUPLOADER\tUPLOADED")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\tv%d\t%s\t%s\t%s\t%s\n",
			f.ID, f.OriginalName, formatFolder(f.FolderID), f.CurrentVersion,
			formatSize(f.Current.Size), f.Current.MimeType, f.UploaderName, formatTime(f.UploadedAt))
	}
	tw.Flush()
}

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID, err := optionalFolder(cmd, "parent")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "CreateFolder", true)
		if err != nil {
			return err
		}
		defer a.Close()

		folder, err := a.CreateFolder(cmd.Context(), args[0], parentID)
		if err != nil {
			return err
		}
		fmt.Printf("Created folder %s (id %d)\n", folder.Name, folder.ID)
		return nil
	},
}

var folderLsCmd = &cobra.Command{
	Use:   "ls [ID]",
	Short: "List a folder's subfolders and files (root level when no ID)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var folderID *int64
		if len(args) == 1 {
			id, err := parseID(args[0], "folder")
			if err != nil {
				return err
			}
			folderID = &id
		}

		a, err := newApp(cmd, "ListContents", false)
		if err != nil {
			return err
		}
		defer a.Close()

		contents, err := a.ListContents(cmd.Context(), folderID)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, f := range contents.Folders {
			fmt.Fprintf(tw, "%d\t%s/\t\t%s\t%s\n", f.ID, f.Name, f.CreatorName, formatTime(f.CreatedAt))
		}
		for _, f := range contents.Files {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", f.ID, f.OriginalName, formatSize(f.Current.Size), f.UploaderName, formatTime(f.UploadedAt))
		}
		tw.Flush()
		return nil
	},
}

var folderPathCmd = &cobra.Command{
	Use:   "path ID",
	Short: "Print the path from the root to a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "folder")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "ResolvePath", false)
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.FolderPath(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a folder and its subfolders",
	Long: `Deletes the folder and every folder below it. Files inside are handled by
library.folder_delete_policy: "detach" moves them to root level, "cascade"
deletes them with their versions, "reject" refuses while any remain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "folder")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "DeleteFolder", true)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.DeleteFolder(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d folder(s)", len(result.FolderIDs))
		switch {
		case result.DetachedFiles > 0:
			fmt.Printf(", moved %d file(s) to root level", result.DetachedFiles)
		case result.DeletedFiles > 0:
			fmt.Printf(", deleted %d file(s)", result.DeletedFiles)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	folderCreateCmd.Flags().String("parent", "", "Parent folder ID (root level when omitted)")

	folderCmd.AddCommand(folderCreateCmd)
	folderCmd.AddCommand(folderLsCmd)
	folderCmd.AddCommand(folderPathCmd)
	folderCmd.AddCommand(folderRmCmd)
	rootCmd.AddCommand(folderCmd)
}
