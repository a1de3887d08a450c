package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/textrecog/pkg/hocr"
	"github.com/lehigh-university-libraries/textrecog/pkg/imaging"
	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

type recognizeOptions struct {
	image         string
	languages     []string
	orientation   string
	outputFormat  string
	engine        string
	level         string
	cpuOnly       bool
	roi           string
	roundTo       int
	corners       bool
	emptyRegion   string
	rejectScripts []string
	encoding      string
	configPath    string
}

var recOpts recognizeOptions

func init() {
	f := RootCmd.Flags()
	f.StringVar(&recOpts.image, "img", "", "Path to the image file (required)")
	f.StringSliceVar(&recOpts.languages, "lang", []string{"en-US"}, "Recognition languages in priority order")
	f.StringVar(&recOpts.orientation, "img_orientation", "up", "Orientation of the image: up, down, left, right or their -mirrored forms")
	f.StringVar(&recOpts.outputFormat, "output_format", "text", "Output format: text, coord, confidence, all or a+b")
	f.StringVar(&recOpts.engine, "engine", engineFromEnv(), "Engine to use: apple-vision, tesseract, google-vision, azure")
	f.StringVar(&recOpts.level, "level", "accurate", "Recognition level: accurate or fast")
	f.BoolVar(&recOpts.cpuOnly, "cpu-only", false, "Restrict the engine to the CPU")
	f.StringVar(&recOpts.roi, "roi", "", "Region of interest as normalized x,y,w,h with a bottom-left origin")
	f.IntVar(&recOpts.roundTo, "round-to", -1, "Round normalized coordinates to this many decimals (-1 disables)")
	f.BoolVar(&recOpts.corners, "corners", false, "Report boxes as two corners instead of origin and extent")
	f.StringVar(&recOpts.emptyRegion, "empty-region", "sentinel", "Result of an empty region search: sentinel or empty")
	f.StringSliceVar(&recOpts.rejectScripts, "reject-script", nil, "Reject image paths containing characters of these Unicode scripts")
	f.StringVar(&recOpts.encoding, "encoding", "plain", "Output encoding: plain, json, yaml or hocr")
	f.StringVar(&recOpts.configPath, "config", "", "YAML file with flag values; flags on the command line win")
}

// loadRecognizeConfig merges the --config file into the root command's
// flags. It runs before logging is set up so the file can carry log-level.
func loadRecognizeConfig(cmd *cobra.Command) error {
	if cmd != cmd.Root() || recOpts.configPath == "" {
		return nil
	}
	return applyConfigFile(cmd.Flags(), recOpts.configPath)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	// img may come from the config file.
	if recOpts.image == "" {
		return errors.New(`required flag(s) "img" not set`)
	}
	out := cmd.OutOrStdout()

	if _, err := os.Stat(recOpts.image); err != nil {
		fmt.Fprintf(out, "%s not exist!\n", recOpts.image)
		return nil
	}

	cfg, err := buildConfig(recOpts)
	if err != nil {
		return err
	}
	shape, err := recognition.ParseShape(recOpts.outputFormat)
	if err != nil {
		return err
	}
	sessionOpts, err := sessionOptions(recOpts)
	if err != nil {
		return err
	}

	session, closeEngine, err := newSession(recOpts.engine, sessionOpts...)
	if err != nil {
		return err
	}
	defer closeEngine()

	results, err := session.Recognize(cmd.Context(), cfg, recognition.FilePath(recOpts.image), shape)
	if err != nil {
		return err
	}
	return writeResults(out, results, recOpts, cfg)
}

// applyConfigFile sets every flag named in the YAML file that was not given
// on the command line.
func applyConfigFile(flags *pflag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	for name, v := range values {
		flag := flags.Lookup(name)
		if flag == nil || name == "config" {
			return fmt.Errorf("unknown key %q in config %s", name, path)
		}
		if flag.Changed {
			continue
		}
		items, isList := v.([]any)
		if !isList {
			items = []any{v}
		}
		for _, item := range items {
			if err := flag.Value.Set(fmt.Sprint(item)); err != nil {
				return fmt.Errorf("invalid %s in config %s: %w", name, path, err)
			}
		}
	}
	return nil
}

func buildConfig(o recognizeOptions) (*recognition.Config, error) {
	level, err := recognition.ParseLevel(o.level)
	if err != nil {
		return nil, err
	}
	orientation, err := recognition.ParseOrientation(o.orientation)
	if err != nil {
		return nil, err
	}
	opts := []recognition.Option{
		recognition.WithLevel(level),
		recognition.WithCPUOnly(o.cpuOnly),
		recognition.WithOrientation(orientation),
	}
	if o.roi != "" {
		region, err := parseRegion(o.roi)
		if err != nil {
			return nil, err
		}
		opts = append(opts, recognition.WithRegionOfInterest(region))
	}
	return recognition.NewConfig(o.languages, opts...)
}

// parseRegion reads "x,y,w,h".
func parseRegion(s string) (recognition.NormalizedBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return recognition.NormalizedBox{}, &recognition.ConfigError{Field: "roi", Reason: fmt.Sprintf("%q must be x,y,w,h", s)}
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return recognition.NormalizedBox{}, &recognition.ConfigError{Field: "roi", Reason: fmt.Sprintf("%q is not a number", p)}
		}
		v[i] = f
	}
	return recognition.NormalizedBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func sessionOptions(o recognizeOptions) ([]recognition.SessionOption, error) {
	normalizer := recognition.Normalizer{Representation: recognition.OriginAndExtent}
	if o.corners {
		normalizer.Representation = recognition.TwoCorners
	}
	if o.roundTo >= 0 {
		places := o.roundTo
		normalizer.RoundTo = &places
	}
	opts := []recognition.SessionOption{recognition.WithNormalizer(normalizer)}

	switch o.emptyRegion {
	case "sentinel", "":
		opts = append(opts, recognition.WithEmptyRegionPolicy(recognition.EmptyRegionSentinel))
	case "empty":
		opts = append(opts, recognition.WithEmptyRegionPolicy(recognition.EmptyRegionEmptySlice))
	default:
		return nil, unknownValue("empty-region", o.emptyRegion, "sentinel", "empty")
	}

	if len(o.rejectScripts) > 0 {
		var tables []*unicode.RangeTable
		for _, name := range o.rejectScripts {
			table, err := recognition.ScriptByName(name)
			if err != nil {
				return nil, err
			}
			tables = append(tables, table)
		}
		opts = append(opts, recognition.WithPathPredicate(recognition.RejectScripts(tables...)))
	}
	return opts, nil
}

func writeResults(w io.Writer, results []recognition.Result, o recognizeOptions, cfg *recognition.Config) error {
	switch o.encoding {
	case "plain", "":
		for _, r := range results {
			if _, err := fmt.Fprintln(w, r); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(results)
	case "hocr":
		width, height, err := imaging.Dimensions(o.image, cfg.Orientation())
		if err != nil {
			return err
		}
		page := hocr.Page{Width: width, Height: height, Image: o.image, Language: cfg.Languages()[0]}
		_, err = fmt.Fprintln(w, hocr.ConvertToHOCR(results, page))
		return err
	}
	return unknownValue("encoding", o.encoding, "plain", "json", "yaml", "hocr")
}
