package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// file command
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Upload, version and retrieve files",
}

var fileUploadCmd = &cobra.Command{
	Use:   "upload PATH",
	Short: "Upload a file, or every file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folderID, err := optionalFolder(cmd, "folder")
		if err != nil {
			return err
		}
		contentType, _ := cmd.Flags().GetString("type")
		recursive, _ := cmd.Flags().GetBool("recursive")

		a, err := newApp(cmd, "CreateFile", true)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.UploadFiles(cmd.Context(), args[0], folderID, contentType, recursive)
		for _, f := range files {
			fmt.Printf("Uploaded %s (id %d, %s)\n", f.OriginalName, f.ID, formatSize(f.Current.Size))
		}
		return err
	},
}

var fileVersionCmd = &cobra.Command{
	Use:   "version ID PATH",
	Short: "Upload PATH as the next version of a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "file")
		if err != nil {
			return err
		}
		contentType, _ := cmd.Flags().GetString("type")

		a, err := newApp(cmd, "AddVersion", true)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.AddVersion(cmd.Context(), id, args[1], contentType)
		if err != nil {
			return err
		}
		fmt.Printf("File %d is now at version %d\n", id, n)
		return nil
	},
}

var fileRestoreCmd = &cobra.Command{
	Use:   "restore ID VERSION",
	Short: "Make an earlier version current",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "file")
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version number: %q", args[1])
		}

		a, err := newApp(cmd, "RestoreVersion", true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RestoreVersion(cmd.Context(), id, n); err != nil {
			return err
		}
		fmt.Printf("File %d restored to version %d\n", id, n)
		return nil
	},
}

var fileMvCmd = &cobra.Command{
	Use:   "mv ID",
	Short: "Move a file to another folder (root level when --folder is omitted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "file")
		if err != nil {
			return err
		}
		folderID, err := optionalFolder(cmd, "folder")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "MoveFile", true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.MoveFile(cmd.Context(), id, folderID); err != nil {
			return err
		}
		fmt.Printf("Moved file %d to %s\n", id, formatFolder(folderID))
		return nil
	},
}

var fileVersionsCmd = &cobra.Command{
	Use:   "versions ID",
	Short: "List the versions of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "file")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "ListVersions", false)
		if err != nil {
			return err
		}
		defer a.Close()

		versions, err := a.ListVersions(cmd.Context(), id)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "\tVERSION\tSIZE\tTYPE\tUPLOADER\tUPLOADED\tCHECKSUM")
		for _, v := range versions {
			marker := ""
			if v.IsCurrent {
				marker = "*"
			}
			fmt.Fprintf(tw, "%s\tv%d\t%s\t%s\t%s\t%s\t%s\n",
				marker, v.VersionNumber, formatSize(v.Blob.Size), v.Blob.MimeType,
				v.UploaderName, formatTime(v.UploadedAt), v.Blob.Checksum)
		}
		tw.Flush()
		return nil
	},
}

var fileGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Download a file version",
	Long: `Writes the current version (or --version N) to the file's original name in
the working directory, to --output, or to stdout with --output -.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		id, err := parseID(args[0], "file")
		if err != nil {
			return err
		}
		version, _ := cmd.Flags().GetInt64("version")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp(cmd, "OpenFile", false)
		if err != nil {
			return err
		}
		defer a.Close()

		if output == "-" {
			_, err := a.Download(cmd.Context(), id, version, os.Stdout)
			return err
		}

		if output == "" {
			file, err := a.GetFile(cmd.Context(), id)
			if err != nil {
				return err
			}
			output = file.OriginalName
		}

		out, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists (use --output)", output)
			}
			return err
		}
		defer func() {
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
			}
		}()

		dl, err := a.Download(cmd.Context(), id, version, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s v%d to %s (%s)\n", dl.Name, dl.Version.VersionNumber, output, formatSize(dl.Version.Blob.Size))
		return nil
	},
}

var fileSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find files whose name contains QUERY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Search", false)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printFiles(os.Stdout, files)
		return nil
	},
}

var fileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all files, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetInt("offset")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "ListFiles", false)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.ListFiles(cmd.Context(), offset, limit)
		if err != nil {
			return err
		}
		printFiles(os.Stdout, files)
		return nil
	},
}

var fileInfoCmd = &cobra.Command{
	Use:   "info ID",
	Short: "Show a file's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "file")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "GetFile", false)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.GetFile(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Name:      %s\n", f.OriginalName)
		fmt.Printf("Folder:    %s\n", formatFolder(f.FolderID))
		fmt.Printf("Uploader:  %s\n", f.UploaderName)
		fmt.Printf("Uploaded:  %s\n", formatTime(f.UploadedAt))
		fmt.Printf("Version:   %d\n", f.CurrentVersion)
		fmt.Printf("Size:      %s\n", formatSize(f.Current.Size))
		fmt.Printf("Type:      %s\n", f.Current.MimeType)
		fmt.Printf("Checksum:  %s\n", f.Current.Checksum)
		return nil
	},
}

func init() {
	fileUploadCmd.Flags().String("folder", "", "Destination folder ID (root level when omitted)")
	fileUploadCmd.Flags().String("type", "", "Content type (derived from the extension when omitted)")
	fileUploadCmd.Flags().BoolP("recursive", "r", false, "Include subdirectories when PATH is a directory")

	fileVersionCmd.Flags().String("type", "", "Content type (derived from the extension when omitted)")

	fileMvCmd.Flags().String("folder", "", "Destination folder ID (root level when omitted)")

	fileGetCmd.Flags().Int64("version", 0, "Version number (current when 0)")
	fileGetCmd.Flags().StringP("output", "o", "", "Output path, or - for stdout")

	fileListCmd.Flags().Int("offset", 0, "Number of files to skip")
	fileListCmd.Flags().Int("limit", 50, "Maximum number of files to show")

	fileCmd.AddCommand(fileUploadCmd)
	fileCmd.AddCommand(fileVersionCmd)
	fileCmd.AddCommand(fileRestoreCmd)
	fileCmd.AddCommand(fileMvCmd)
	fileCmd.AddCommand(fileVersionsCmd)
	fileCmd.AddCommand(fileGetCmd)
	fileCmd.AddCommand(fileSearchCmd)
	fileCmd.AddCommand(fileListCmd)
	fileCmd.AddCommand(fileInfoCmd)
	rootCmd.AddCommand(fileCmd)
}
