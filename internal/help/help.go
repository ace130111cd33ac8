// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/formatters"
)

// Topics accepted by --help <topic>.
var Topics = []string{"formats", "fields"}

// System renders help content for the command line.
type System struct {
	out    io.Writer
	colors map[string]*color.Color
}

// NewSystem creates a new help system writing to out
func NewSystem(out io.Writer, noColor bool) *System {
	if noColor {
		color.NoColor = true
	}

	return &System{
		out: out,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"negative": color.New(color.FgRed),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// Show displays the help for topic, or the general help when topic is
// empty. It reports false for an unknown topic.
func (h *System) Show(topic string) bool {
	switch strings.ToLower(topic) {
	case "":
		h.ShowGeneralHelp()
	case "formats":
		h.ShowFormatsHelp()
	case "fields":
		h.ShowFieldsHelp()
	default:
		h.colors["negative"].Fprintf(h.out, "Error: Help topic '%s' not found.\n", topic)
		fmt.Fprintf(h.out, "Available topics: %s\n", strings.Join(Topics, ", "))
		return false
	}
	return true
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Fprintln(h.out, "Passport Cross-Check - MRZ and visual zone validation")
	fmt.Fprintln(h.out, "=====================================================")
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "Extracts passport fields from the Machine Readable Zone (MRZ) and from the")
	fmt.Fprintln(h.out, "printed visual zone (Qwen2-VL), compares them field by field and reports")
	fmt.Fprintln(h.out, "discrepancies with per-field confidence.")
	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "USAGE:")
	fmt.Fprintln(h.out, "  crosscheck [options] <image>")
	fmt.Fprintln(h.out, "  crosscheck --web [--port <port>]  # Web server mode")
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "OPTIONS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --hf-token\t<token>\tHugging Face API token (default: $HF_TOKEN)")
	fmt.Fprintln(w, "  --mrz-timeout\t<seconds>\tMRZ extraction timeout (default: 30)")
	fmt.Fprintln(w, "  --vlm-timeout\t<seconds>\tVLM extraction timeout (default: 60)")
	fmt.Fprintf(w, "  --vlm-model\t<model>\tVLM model identifier (default: %s)\n", crosscheck.DefaultVLMModel)
	fmt.Fprintf(w, "  --format\t<format>\tOutput format: %s (default: text)\n", strings.Join(formatters.List(), ", "))
	fmt.Fprintln(w, "  --output\t<path>\tPath to output file (if not specified, output to stdout)")
	fmt.Fprintln(w, "  --verbose, -v\t\tShow source errors and processing metadata")
	fmt.Fprintln(w, "  --debug\t\tEnable debug logging of each extraction step")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  --web\t\tStart web server mode instead of a single cross-check")
	fmt.Fprintln(w, "  --port\t<port>\tPort for web server (default: 8080, only used with --web)")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	fmt.Fprintln(w, "  --help\t\tShow this help message")
	fmt.Fprintln(w, "  --help <topic>\t\tShow help for a topic: formats, fields")
	w.Flush()

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "EXAMPLES:")
	h.colors["example"].Fprintln(h.out, "  crosscheck passport.jpg")
	h.colors["example"].Fprintln(h.out, "  crosscheck passport.pdf --format json --output result.json")
	h.colors["example"].Fprintln(h.out, "  crosscheck passport.png --vlm-timeout 120 --verbose")
	h.colors["example"].Fprintln(h.out, "  crosscheck --web --port 9000")

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "EXIT CODES:")
	w = tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  0\tsuccess or partial result")
	fmt.Fprintln(w, "  2\tinvalid input or configuration")
	fmt.Fprintln(w, "  3\tboth extraction sources failed")
	w.Flush()

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "CONFIGURATION:")
	fmt.Fprintln(h.out, "  Project config: crosscheck.yaml or .crosscheck.yaml (in current directory)")
	fmt.Fprintln(h.out, "  User config:    $XDG_CONFIG_HOME/passport-crosscheck/config.yaml")
	fmt.Fprintln(h.out, "  Environment:    HF_TOKEN, CROSSCHECK_VLM_MODEL, CROSSCHECK_VLM_BASE_URL,")
	fmt.Fprintln(h.out, "                  CROSSCHECK_MRZ_TIMEOUT, CROSSCHECK_VLM_TIMEOUT, PORT")
	fmt.Fprintln(h.out, "  A .env file in the current directory is loaded first.")
}

// ShowFormatsHelp lists the registered output formats.
func (h *System) ShowFormatsHelp() {
	h.colors["title"].Fprintln(h.out, "Output Formats")
	fmt.Fprintln(h.out, "==============")
	fmt.Fprintln(h.out)

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  FORMAT\tEXTENSION\tDESCRIPTION")
	for _, info := range formatters.GetSupportedFormats() {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", info.Name, info.Extension, info.Description)
	}
	w.Flush()
}

// ShowFieldsHelp describes how each passport field is compared.
func (h *System) ShowFieldsHelp() {
	h.colors["title"].Fprintln(h.out, "Compared Fields")
	fmt.Fprintln(h.out, "===============")
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "When both sources read a field and disagree, the preferred source supplies")
	fmt.Fprintln(h.out, "the recommended value and the discrepancy is reported with this severity.")
	fmt.Fprintln(h.out)

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  FIELD\tPREFERRED\tSEVERITY\tWEIGHT")
	for _, f := range crosscheck.StandardFields {
		p := crosscheck.PolicyFor(f)
		weight := "standard"
		if p.Critical {
			weight = "critical"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", f, preferenceLabel(p.Preference), p.Severity, weight)
	}
	w.Flush()

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "Names are compared case-insensitively with diacritics folded. Dates are")
	fmt.Fprintln(h.out, "compared as calendar dates, whichever of YYYY-MM-DD or YYMMDD was read.")
}

func preferenceLabel(p crosscheck.Preference) string {
	switch p {
	case crosscheck.PreferMRZ:
		return "MRZ"
	case crosscheck.PreferVLM:
		return "VLM"
	default:
		return "MRZ (either)"
	}
}
