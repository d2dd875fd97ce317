package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/noah-isme/membership-api/pkg/keycase"
)

// volatileKeys differ between implementations without being a regression.
var volatileKeys = map[string]struct{}{
	"createdAt":     {},
	"updatedAt":     {},
	"derivedStatus": {},
}

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

// side is one API under comparison plus the credential it expects.
type side struct {
	name   string
	base   string
	header string
	value  string
}

type reply struct {
	status  int
	body    []byte
	elapsed time.Duration
}

type outcome struct {
	target  target
	primary reply
	legacy  reply
	err     error
}

func (o outcome) statusMatch() bool { return o.primary.status == o.legacy.status }

func (o outcome) bodyMatch() bool { return bodiesEqual(o.primary.body, o.legacy.body) }

func (o outcome) diverged() bool {
	return o.err != nil || !o.statusMatch() || !o.bodyMatch()
}

func main() {
	var (
		goBase       string
		legacyBase   string
		goToken      string
		legacyCookie string
		targetsPath  string
		criticalOnly bool
		timeout      time.Duration
	)
	flag.StringVar(&goBase, "go-base", "http://localhost:8080/api", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000/api", "Legacy API base URL")
	flag.StringVar(&goToken, "go-token", os.Getenv("SHADOW_GO_TOKEN"), "Bearer token for the Go API")
	flag.StringVar(&legacyCookie, "legacy-cookie", os.Getenv("SHADOW_LEGACY_COOKIE"), "Session cookie header for the legacy API")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.BoolVar(&criticalOnly, "critical-only", false, "Skip non-critical targets")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "Per-request timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath, criticalOnly)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	primary := side{name: "go", base: goBase, header: "Authorization", value: bearer(goToken)}
	legacy := side{name: "legacy", base: legacyBase, header: "Cookie", value: legacyCookie}
	client := &http.Client{}

	outcomes := make([]outcome, 0, len(targets))
	for _, tgt := range targets {
		outcomes = append(outcomes, compare(context.Background(), client, timeout, primary, legacy, tgt))
	}

	breaking, optional := tally(outcomes)
	writeReport(os.Stdout, outcomes)
	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string, criticalOnly bool) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Targets []target `json:"targets"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	targets := file.Targets[:0]
	for _, t := range file.Targets {
		if criticalOnly && !t.Critical {
			continue
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return targets, nil
}

func bearer(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

func compare(ctx context.Context, client *http.Client, timeout time.Duration, primary, legacy side, tgt target) outcome {
	out := outcome{target: tgt}
	var err error
	if out.primary, err = fetch(ctx, client, timeout, primary, tgt); err != nil {
		out.err = err
		return out
	}
	if out.legacy, err = fetch(ctx, client, timeout, legacy, tgt); err != nil {
		out.err = err
	}
	return out
}

func fetch(ctx context.Context, client *http.Client, timeout time.Duration, api side, tgt target) (reply, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	url := strings.TrimRight(api.base, "/") + "/" + strings.TrimLeft(tgt.Path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return reply{}, fmt.Errorf("%s request: %w", api.name, err)
	}
	if api.value != "" {
		req.Header.Set(api.header, api.value)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return reply{}, fmt.Errorf("%s request failed: %w", api.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply{}, fmt.Errorf("read %s body: %w", api.name, err)
	}
	return reply{status: resp.StatusCode, body: body, elapsed: time.Since(start)}, nil
}

func tally(outcomes []outcome) (breaking, optional int) {
	for _, o := range outcomes {
		switch {
		case !o.diverged():
		case o.target.Critical:
			breaking++
		default:
			optional++
		}
	}
	return breaking, optional
}

// bodiesEqual compares the Go envelope's data with the bare legacy body,
// ignoring key case, integral float formatting and volatile keys.
func bodiesEqual(primary, legacy []byte) bool {
	a, errA := canonical(primary)
	b, errB := canonical(legacy)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func canonical(raw []byte) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]interface{}); ok {
		if data, ok := m["data"]; ok {
			v = data
		}
	}
	return scrub(keycase.Transform(v)), nil
}

func scrub(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if _, skip := volatileKeys[k]; skip {
				continue
			}
			out[k] = scrub(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = scrub(item)
		}
		return out
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
	}
	return v
}

func writeReport(w io.Writer, outcomes []outcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESULT\tMETHOD\tPATH\tGO\tLEGACY\tCRITICAL\tNOTE")
	for _, o := range outcomes {
		result, note := "OK", ""
		switch {
		case o.err != nil:
			result, note = "ERROR", o.err.Error()
		case !o.statusMatch():
			result, note = "DIFF", "status"
		case !o.bodyMatch():
			result, note = "DIFF", "body"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d (%s)\t%d (%s)\t%t\t%s\n",
			result, o.target.Method, o.target.Path,
			o.primary.status, o.primary.elapsed.Round(time.Millisecond),
			o.legacy.status, o.legacy.elapsed.Round(time.Millisecond),
			o.target.Critical, note)
	}
	if err := tw.Flush(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		log.Printf("write report: %v", err)
	}
}
