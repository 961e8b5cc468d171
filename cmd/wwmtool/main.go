// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Command wwmtool unpacks, extracts, translates and repacks game archives.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/suprsokr/go-wwm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wwmtool",
		Short:         "Archive and text table tool for Where Winds Meet",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.String(keyConfig, "", "config file (default ./wwmtool.yaml)")
	pf.String(keyDelimiter, ";", `record table delimiter (";" or "tab")`)
	pf.Int(keyLevel, 0, "zstd compression level, 0 for default")
	pf.Int(keyJobs, 4, "blocks or archives processed at once")
	pf.BoolP(keyVerbose, "v", false, "debug logging")

	root.AddCommand(
		newUnpackCmd(),
		newPackCmd(),
		newExtractTextCmd(),
		newApplyCmd(),
		newPackTextCmd(),
		newBuildCmd(),
	)
	return root
}

func newUnpackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack [archive]",
		Short: "Write every block of an archive as a .dat file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			archive, err := wwm.OpenArchive(args[0], a.codec, a.options()...)
			if err != nil {
				return err
			}

			dir := a.v.GetString(keyOutput)
			if dir == "" {
				dir = wwm.ArchiveBase(args[0])
			}

			written, err := wwm.UnpackDir(archive, dir)
			if err != nil {
				return err
			}
			for _, path := range written {
				a.log.Debug().Str("file", path).Msg("wrote block")
			}
			a.log.Info().
				Str("archive", args[0]).
				Int("blocks", len(written)).
				Int("skipped", len(archive.Warnings())).
				Int("unindexed", len(archive.Unindexed)).
				Msg("unpacked")
			return nil
		},
	}
	cmd.Flags().StringP(keyOutput, "o", "", "output directory (default: archive name)")
	return cmd
}

func newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack [dir]",
		Short: "Join the .dat files of a directory into an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			data, err := wwm.PackDir(args[0], wwm.DefaultVersion, a.codec)
			if err != nil {
				return err
			}

			out := a.v.GetString(keyOutput)
			if out == "" {
				out = filepath.Base(filepath.Clean(args[0])) + ".bin"
			}
			if err := wwm.WriteFileAtomic(out, data); err != nil {
				return err
			}
			a.log.Info().Str("output", out).Int("bytes", len(data)).Msg("packed")
			return nil
		},
	}
	cmd.Flags().StringP(keyOutput, "o", "", "output archive (default: <dir>.bin)")
	return cmd
}

func newExtractTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract-text [archive...]",
		Short: "Extract resource table text into a record table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var all []wwm.Record
			for _, path := range args {
				archive, err := wwm.OpenArchive(path, a.codec, a.options()...)
				if err != nil {
					return err
				}
				ext, err := wwm.ExtractText(cmd.Context(), archive, a.options()...)
				if err != nil {
					return err
				}

				// Numbering runs across all archives
				for _, r := range ext.Records {
					r.Number = len(all) + 1
					all = append(all, r)
				}
				a.log.Info().Str("archive", path).Int("records", len(ext.Records)).Msg("extracted")
			}

			out := a.v.GetString(keyOutput)
			if err := wwm.WriteRecordsFile(out, all, a.delim); err != nil {
				return err
			}
			a.log.Info().Str("output", out).Int("records", len(all)).Msg("text extracted")
			return nil
		},
	}
	cmd.Flags().StringP(keyOutput, "o", "TextExtractor.csv", "output record table")
	return cmd
}

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [records]",
		Short: "Replace record text from a tab-separated ID/text overlay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			overlayPath := a.v.GetString(keyTranslation)
			if overlayPath == "" {
				return fmt.Errorf("--%s is required", keyTranslation)
			}
			overlay, err := wwm.LoadOverlayFile(overlayPath)
			if err != nil {
				return err
			}

			records, err := wwm.ReadRecordsFile(args[0], a.delim)
			if err != nil {
				return err
			}
			replaced := overlay.Apply(records)

			out := a.v.GetString(keyOutput)
			if out == "" {
				ext := filepath.Ext(args[0])
				out = args[0][:len(args[0])-len(ext)] + "_translated" + ext
			}
			if err := wwm.WriteRecordsFile(out, records, a.delim); err != nil {
				return err
			}
			a.log.Info().
				Str("output", out).
				Int("overlay", len(overlay)).
				Int("replaced", replaced).
				Int("records", len(records)).
				Msg("translation applied")
			return nil
		},
	}
	cmd.Flags().StringP(keyTranslation, "t", "", "overlay table (ID<TAB>text)")
	cmd.Flags().StringP(keyOutput, "o", "", "output record table (default: <records>_translated)")
	return cmd
}

func newPackTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack-text [archive] [records]",
		Short: "Re-encode text from a record table into an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			archive, err := wwm.OpenArchive(args[0], a.codec, a.options()...)
			if err != nil {
				return err
			}
			records, err := wwm.ReadRecordsFile(args[1], a.delim)
			if err != nil {
				return err
			}

			data, err := wwm.PackText(cmd.Context(), archive, records, a.codec, a.options()...)
			if err != nil {
				return err
			}

			out := a.v.GetString(keyOutput)
			if out == "" {
				out = filepath.Join("release", filepath.Base(args[0]))
			}
			if err := wwm.WriteFileAtomic(out, data); err != nil {
				return err
			}
			a.log.Info().Str("output", out).Int("records", len(records)).Msg("text packed")
			return nil
		},
	}
	cmd.Flags().StringP(keyOutput, "o", "", "output archive (default: release/<archive>)")
	return cmd
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [archive...]",
		Short: "Extract, translate and repack several archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var overlay wwm.Overlay
			if path := a.v.GetString(keyTranslation); path != "" {
				if overlay, err = wwm.LoadOverlayFile(path); err != nil {
					return err
				}
			}

			results, err := wwm.Build(cmd.Context(), a.codec, wwm.BuildOptions{
				Inputs:    args,
				Overlay:   overlay,
				OutputDir: a.v.GetString(keyOutput),
				WorkDir:   a.v.GetString(keyWorkDir),
				Delimiter: a.delim,
			}, a.options()...)
			if err != nil {
				return err
			}

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
				}
			}
			a.log.Info().Int("ok", len(results)-failed).Int("failed", failed).Msg("build finished")
			if failed > 0 {
				return fmt.Errorf("%d of %d archives failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringP(keyTranslation, "t", "", "overlay table (ID<TAB>text)")
	cmd.Flags().StringP(keyOutput, "o", "release", "output directory")
	cmd.Flags().StringP(keyWorkDir, "w", "work", "directory for intermediate record tables")
	return cmd
}
