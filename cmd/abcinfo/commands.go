package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-abcfile"
)

// errNotFound makes find exit non-zero when any descriptor is missing.
var errNotFound = errors.New("one or more classes not found")

func fmtValue(v any) string {
	switch x := v.(type) {
	case uint32:
		return fmt.Sprintf("%d (%#x)", x, x)
	case uint64:
		return fmt.Sprintf("%#016x", x)
	default:
		return fmt.Sprint(x)
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <location>",
		Short: "Show header fields and derived identifiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			h := f.Header()
			checksum := okStyle.Render("ok")
			if err := f.ValidateChecksum(); err != nil {
				checksum = badStyle.Render(fmt.Sprintf("mismatch, computed %08x", f.ComputeChecksum()))
			}
			lines := []string{
				titleStyle.Render(f.Filename()),
				row("version", h.Version),
				row("file size", h.FileSize),
				row("checksum", fmt.Sprintf("%08x %s", h.Checksum, checksum)),
				row("classes", h.NumClasses),
				row("line programs", h.NumLNPs),
				row("literal arrays", f.LiteralArrays().Len()),
				row("index regions", h.NumIndexes),
				row("foreign region", fmt.Sprintf("%#x+%#x", h.ForeignOff, h.ForeignSize)),
				row("filename hash", fmt.Sprintf("%08x", f.FilenameHash())),
				row("unique id", f.UniqID()),
			}
			fmt.Fprintln(cmd.OutOrStdout(), lipgloss.JoinVertical(lipgloss.Left, lines...))
			return nil
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <location>...",
		Short: "Validate headers and checksums",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed []string
			for _, loc := range args {
				if err := verify(a, loc); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", badStyle.Render("FAIL"), loc, err)
					failed = append(failed, loc)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("OK"), loc)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d containers failed verification", len(failed), len(args))
			}
			return nil
		},
	}
}

func verify(a *app, location string) error {
	f, err := a.open(location)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.ValidateChecksum()
}

func newClassesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classes <location>",
		Short: "List class descriptors with their handles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			for _, id := range f.Classes().All() {
				sd, err := f.StringData(id)
				if err != nil {
					return fmt.Errorf("class %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, sd)
			}
			return nil
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	var useHashTable bool
	cmd := &cobra.Command{
		Use:   "find <location> <descriptor>...",
		Short: "Look up class handles by descriptor",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if useHashTable {
				t, err := abcfile.BuildClassHashTable(f)
				if err != nil {
					return err
				}
				f.AttachClassHashTable(t)
			}

			missing := false
			for _, d := range args[1:] {
				id := f.ClassID(d)
				if !id.IsValid() {
					missing = true
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", badStyle.Render("absent"), d)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, d)
			}
			if missing {
				return errNotFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useHashTable, "hash-table", false, "build and use a descriptor hash table instead of binary search")
	return cmd
}

func newDiffCmd(a *app) *cobra.Command {
	var unified bool
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare the class sets of two containers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldF, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer oldF.Close()
			newF, err := a.open(args[1])
			if err != nil {
				return err
			}
			defer newF.Close()

			d, err := abcfile.DiffClasses(args[0], oldF, args[1], newF)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if d.Equal() {
				fmt.Fprintln(out, okStyle.Render("class sets are identical"))
				return nil
			}
			if unified {
				fmt.Fprint(out, d.Unified)
				return nil
			}
			var b strings.Builder
			for _, s := range d.Removed {
				b.WriteString(delStyle.Render("- "+s) + "\n")
			}
			for _, s := range d.Added {
				b.WriteString(addStyle.Render("+ "+s) + "\n")
			}
			fmt.Fprint(out, b.String())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&unified, "unified", "u", false, "print a unified diff of the descriptor listings")
	return cmd
}
