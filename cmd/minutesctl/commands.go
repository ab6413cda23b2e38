package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"meeting-minutes-api/internal/application/minutes"
	"meeting-minutes-api/internal/domain/entity"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type minutesService interface {
	ProcessText(ctx context.Context, text string) (*minutes.ProcessResult, error)
	ProcessAudio(ctx context.Context, assets []entity.AudioAsset) (*minutes.ProcessResult, error)
	Save(ctx context.Context, in *minutes.SaveInput) (*minutes.SaveResult, error)
	List(ctx context.Context) ([]*entity.Minute, error)
	Delete(ctx context.Context, id int64) (*minutes.DeleteResult, error)
	Export(ctx context.Context, w io.Writer) error
}

// commandDeps 命令依赖；Open 惰性初始化服务，测试中替换为假实现
type commandDeps struct {
	Open func(ctx context.Context) (minutesService, func(), error)
}

func (d *commandDeps) withService(ctx context.Context, fn func(minutesService) error) error {
	svc, cleanup, err := d.Open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(svc)
}

func validOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", format)
	}
}

func newProcessCommand(deps *commandDeps) *cobra.Command {
	var (
		textFile   string
		audioFiles []string
		save       bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Generate minutes from a transcript or audio files",
		Long: `Generate minutes from a plain-text transcript (use "-" for stdin)
or from one or more audio files, which are transcribed in the given order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			if (textFile == "") == (len(audioFiles) == 0) {
				return fmt.Errorf("exactly one of --text or --audio is required")
			}

			var text string
			if textFile != "" {
				b, err := readInput(cmd.InOrStdin(), textFile)
				if err != nil {
					return err
				}
				text = string(b)
			}

			return deps.withService(cmd.Context(), func(svc minutesService) error {
				var (
					res *minutes.ProcessResult
					err error
				)
				if textFile != "" {
					res, err = svc.ProcessText(cmd.Context(), text)
				} else {
					res, err = svc.ProcessAudio(cmd.Context(), audioAssets(audioFiles))
				}
				if err != nil {
					return err
				}

				if err := printResult(cmd.OutOrStdout(), output, res); err != nil {
					return err
				}
				if !save {
					return nil
				}

				saved, err := svc.Save(cmd.Context(), &minutes.SaveInput{
					FormattedTranscript: res.FormattedTranscript,
					Title:               res.Title,
					Analysis:            res.Analysis,
					Improvement:         res.Improvement,
					MindMap:             res.MindMap,
				})
				if err != nil {
					return err
				}
				if saved.Status != minutes.StatusSuccess {
					return fmt.Errorf("save failed: %s %s", saved.Code, saved.Detail)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved minute %d\n", saved.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&textFile, "text", "t", "", "Transcript file, or - for stdin")
	cmd.Flags().StringArrayVarP(&audioFiles, "audio", "a", nil, "Audio file (repeatable, processed in order)")
	cmd.Flags().BoolVar(&save, "save", false, "Save the generated minutes")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json, yaml")

	return cmd
}

func newListCommand(deps *commandDeps) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List saved minutes (newest first)",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			return deps.withService(cmd.Context(), func(svc minutesService) error {
				list, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				return printMinutes(cmd.OutOrStdout(), output, list)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json, yaml")
	return cmd
}

func newDeleteCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete saved minutes by id",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return deps.withService(cmd.Context(), func(svc minutesService) error {
				res, err := svc.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if res.Status != minutes.StatusSuccess {
					return fmt.Errorf("delete %d failed: %s %s", id, res.Code, res.Detail)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted minute %d\n", id)
				return nil
			})
		},
	}
}

func newExportCommand(deps *commandDeps) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all minutes to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = fmt.Sprintf("minutes-%s.xlsx", time.Now().Format("20060102"))
			}
			return deps.withService(cmd.Context(), func(svc minutesService) error {
				f, err := os.Create(file)
				if err != nil {
					return fmt.Errorf("creating %s: %w", file, err)
				}
				if err := svc.Export(cmd.Context(), f); err != nil {
					_ = f.Close()
					_ = os.Remove(file)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", file)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (default minutes-YYYYMMDD.xlsx)")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func audioAssets(paths []string) []entity.AudioAsset {
	assets := make([]entity.AudioAsset, 0, len(paths))
	for _, p := range paths {
		p := p
		var size int64
		if fi, err := os.Stat(p); err == nil {
			size = fi.Size()
		}
		assets = append(assets, entity.AudioAsset{
			Name: filepath.Base(p),
			Size: size,
			Open: func() (io.ReadCloser, error) { return os.Open(p) },
		})
	}
	return assets
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		// 经 JSON 中转以沿用 json 标签（例如隐藏 embedding）
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("invalid output format: %s", format)
}

func printResult(w io.Writer, format string, res *minutes.ProcessResult) error {
	if format != outputText {
		return encode(w, format, res)
	}

	fmt.Fprintf(w, "# %s\n\n", res.Title)
	if res.Degraded {
		fmt.Fprintln(w, "(structured output unavailable, raw generation below)")
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, res.Analysis)
	if res.Improvement != "" {
		fmt.Fprintf(w, "\n## Improvement\n\n%s\n", res.Improvement)
	}
	if res.MindMap != nil && !res.MindMap.IsEmpty() {
		fmt.Fprintln(w, "\n## Mind map")
		printMindMap(w, res.MindMap, 0)
	}
	return nil
}

func printMindMap(w io.Writer, n *entity.MindMapNode, depth int) {
	fmt.Fprintf(w, "%s- %s\n", strings.Repeat("  ", depth), n.Name)
	for _, c := range n.Children {
		if c != nil {
			printMindMap(w, c, depth+1)
		}
	}
}

func printMinutes(w io.Writer, format string, list []*entity.Minute) error {
	if list == nil {
		list = []*entity.Minute{}
	}
	if format != outputText {
		return encode(w, format, map[string]any{"minutes": list})
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No minutes found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, m := range list {
		created := "-"
		if !m.CreatedAt.IsZero() {
			created = m.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", m.ID, created, m.Title)
	}
	return tw.Flush()
}
