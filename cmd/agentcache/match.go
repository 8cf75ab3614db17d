package main

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/agentcache/internal/profile"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
)

// matchOutput is printed by `match --file`.
type matchOutput struct {
	Query      string  `json:"query"`
	Index      int     `json:"index"`
	Line       int     `json:"line,omitempty"` // 1-based line of the candidate in the file
	Candidate  *string `json:"candidate,omitempty"`
	Similarity float64 `json:"similarity"`
	IsMatch    bool    `json:"is_match"`
}

func newMatchCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "match <a> <b> | match --file <path> <query>",
		Short: "Score two queries, or find the closest line of a file",
		Args: func(_ *cobra.Command, args []string) error {
			if file != "" && len(args) != 1 {
				return errors.New("match --file takes exactly one query")
			}
			if file == "" && len(args) != 2 {
				return errors.New("match takes exactly two queries")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(viper.GetViper(), configFile)
			if err != nil {
				return err
			}
			matcher, err := similarity.NewMatcher(p.MatcherConfig(""))
			if err != nil {
				return err
			}

			if file == "" {
				return writeJSON(cmd.OutOrStdout(), matcher.Compare(args[0], args[1]))
			}

			f, err := os.Open(file)
			if err != nil {
				return errors.Wrapf(err, "failed to open %s", file)
			}
			defer f.Close()
			out, err := matchLines(matcher, args[0], f)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one candidate query per line")
	return cmd
}

// maxCandidateLine caps the length of one candidate line.
const maxCandidateLine = 1 << 20

// matchLines scores query against every non-blank line of r.
func matchLines(matcher *similarity.Matcher, query string, r io.Reader) (*matchOutput, error) {
	type candidate struct {
		line int
		text string
	}

	var candidates []candidate
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxCandidateLine)
	for n := 1; scanner.Scan(); n++ {
		if text := strings.TrimSpace(scanner.Text()); text != "" {
			candidates = append(candidates, candidate{line: n, text: text})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read candidates")
	}

	best, err := similarity.FindBestMatch(matcher, query, candidates, func(c candidate) string {
		return c.text
	})
	if err != nil {
		return nil, err
	}

	out := &matchOutput{
		Query:      query,
		Index:      best.Index,
		Similarity: best.Similarity,
		IsMatch:    best.IsMatch,
	}
	if best.Record != nil {
		out.Line = best.Record.line
		out.Candidate = &best.Record.text
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
