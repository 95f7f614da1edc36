package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/apresai/podcraft/internal/pipeline"
	"github.com/apresai/podcraft/internal/progress"
	"github.com/apresai/podcraft/internal/publish"
	"github.com/apresai/podcraft/internal/script"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a podcast episode from files or a URL",
	Example: `  podcraft generate -i report.pdf -i notes.md --language English
  podcraft generate -u https://example.com/post --length short --tone formal
  podcraft generate -i paper.pdf --script-only
  podcraft generate -f podcraft-cache/paper_01J.../script.json --tts baidu`,
	RunE: runGenerate,
}

var (
	flagFiles      []string
	flagURL        string
	flagQuestion   string
	flagTone       string
	flagLength     string
	flagLanguage   string
	flagLLM        string
	flagTTS        string
	flagOutput     string
	flagScriptOnly bool
	flagFromScript string
	flagPublish    bool
	flagTitle      string
	flagTUI        bool
)

func init() {
	f := generateCmd.Flags()
	f.StringSliceVarP(&flagFiles, "input", "i", nil, "Source file: PDF, Word (.docx), TXT or Markdown (repeatable)")
	f.StringVarP(&flagURL, "url", "u", "", "Web page to read")
	f.StringVarP(&flagQuestion, "question", "q", "", "Question or focus for the conversation")
	f.StringVarP(&flagTone, "tone", "n", "fun", "Conversation tone: fun or formal")
	f.StringVarP(&flagLength, "length", "l", "medium", "Length: short (host only), medium, long")
	f.StringVarP(&flagLanguage, "language", "L", script.DefaultLanguage.Name, "Output language, by name or code")
	f.StringVarP(&flagLLM, "llm", "m", "", "Script model provider (default from config)")
	f.StringVarP(&flagTTS, "tts", "T", "", "Speech provider (default from config)")
	f.StringVarP(&flagOutput, "output", "o", "", "Copy the finished MP3 to this path")
	f.BoolVarP(&flagScriptOnly, "script-only", "S", false, "Write the script and transcript, skip speech synthesis")
	f.StringVarP(&flagFromScript, "from-script", "f", "", "Synthesize an existing script JSON file")
	f.BoolVar(&flagPublish, "publish", false, "Upload the episode to S3 and record it in DynamoDB")
	f.StringVar(&flagTitle, "title", "", "Episode title when publishing")
	f.BoolVarP(&flagTUI, "tui", "t", false, "Interactive setup wizard")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if flagTUI {
		if err := runInteractiveSetup(); err != nil {
			return err
		}
	}

	if flagFromScript != "" && (len(flagFiles) > 0 || flagURL != "") {
		return fmt.Errorf("--from-script cannot be combined with --input or --url")
	}
	if flagFromScript != "" && flagScriptOnly {
		return fmt.Errorf("--from-script and --script-only are mutually exclusive")
	}
	if flagPublish && flagScriptOnly {
		return fmt.Errorf("--publish needs audio; drop --script-only")
	}
	if !flagScriptOnly {
		if err := checkFFmpeg(); err != nil {
			return err
		}
	}

	req := pipeline.Request{
		Files:       flagFiles,
		URL:         flagURL,
		Question:    flagQuestion,
		Tone:        flagTone,
		Length:      flagLength,
		Language:    flagLanguage,
		LLMProvider: flagLLM,
		TTSProvider: flagTTS,
		ScriptOnly:  flagScriptOnly,
	}
	if flagFromScript != "" {
		d, err := script.Load(flagFromScript)
		if err != nil {
			return err
		}
		req.Script = d
	}

	var renderer *progress.BarRenderer
	if !flagVerbose {
		renderer = progress.NewBarRenderer(os.Stdout)
		req.Progress = renderer.Handle
	}

	ctx := cmd.Context()
	p := pipeline.New(*cfg, pipeline.WithLogger(logger))
	defer p.Close()

	res, err := p.GeneratePodcast(ctx, req)
	if renderer != nil {
		renderer.Finish()
	}
	if err != nil {
		logger.Debug("generation failed", "error", err)
		return errors.New(pipeline.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	if flagScriptOnly {
		fmt.Fprintf(out, "Script saved to %s\n", res.ScriptPath)
		fmt.Fprintf(out, "Synthesize it later with: podcraft generate --from-script %s\n", res.ScriptPath)
		return nil
	}
	if flagVerbose {
		fmt.Fprintf(out, "Podcast saved to %s\n", res.AudioPath)
	}

	if flagOutput != "" {
		if err := copyFile(res.AudioPath, flagOutput); err != nil {
			return err
		}
		fmt.Fprintf(out, "Copied to %s\n", flagOutput)
	}

	if flagPublish {
		pub, err := publish.New(ctx, cfg.Publish, logger)
		if err != nil {
			return err
		}
		title := flagTitle
		if title == "" {
			title = pipeline.Slug(flagFiles, flagURL)
		}
		ep, err := pub.Publish(ctx, publish.Episode{
			Title:       title,
			Source:      flagURL,
			LLMProvider: flagLLM,
			TTSProvider: flagTTS,
			Language:    flagLanguage,
			Length:      flagLength,
		}, res)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		fmt.Fprintf(out, "Published %s: %s\n", ep.ID, ep.AudioURL)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
