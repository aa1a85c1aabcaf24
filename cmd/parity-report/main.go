package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"parity/internal/config"
	"parity/internal/report"
	"parity/internal/uploader"
	"parity/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// FileContent holds inlined case file content.
type FileContent struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// CaseEntry is one run case on the report site.
type CaseEntry struct {
	ID             string                 `json:"id"`
	Dir            string                 `json:"dir"`
	EntryPoint     string                 `json:"entry_point"`
	RunID          string                 `json:"run_id"`
	Seed           int64                  `json:"seed"`
	Passed         bool                   `json:"passed"`
	Total          int                    `json:"total"`
	Failures       int                    `json:"failures"`
	GaveUp         bool                   `json:"gave_up"`
	Canceled       bool                   `json:"canceled"`
	Timestamp      string                 `json:"timestamp"`
	Commit         string                 `json:"commit"`
	FirstVerdict   string                 `json:"first_verdict"`
	FirstReason    string                 `json:"first_reason"`
	CaseID         string                 `json:"case_id"`
	CaseDir        string                 `json:"case_dir"`
	ArchiveName    string                 `json:"archive_name"`
	ArchiveCodec   string                 `json:"archive_codec"`
	ArchiveURL     string                 `json:"archive_url"`
	SummaryURL     string                 `json:"summary_url"`
	UploadLocation string                 `json:"upload_location"`
	Details        map[string]any         `json:"details"`
	Files          map[string]FileContent `json:"files"`
}

// SiteData is the JSON payload for the static site.
type SiteData struct {
	GeneratedAt string      `json:"generated_at"`
	Source      string      `json:"source"`
	Cases       []CaseEntry `json:"cases"`
}

type loadOptions struct {
	MaxBytes              int
	ArtifactPublicBaseURL string
}

type publishOptions struct {
	S3            config.S3Config
	PublicBaseURL string
}

// caseFiles are inlined into each entry when present.
var caseFiles = []string{"README.md", "counterexamples.json"}

func main() {
	input := flag.String("input", ".report", "input directory or s3://bucket/prefix")
	output := flag.String("output", "web/public", "output directory for reports.json")
	configPath := flag.String("config", "config.yaml", "path to config file (for S3 access)")
	maxBytes := flag.Int("max-bytes", 64*1024, "max bytes to read per case file")
	publishBucket := flag.String("publish-bucket", "", "target bucket for publishing reports.json")
	publishPrefix := flag.String("publish-prefix", "", "target prefix for publishing reports.json")
	publishPublicBaseURL := flag.String("publish-public-base-url", "", "public base URL for the published manifest")
	artifactPublicBaseURL := flag.String("artifact-public-base-url", "", "public HTTP(S) base URL used to derive per-case links from s3 upload locations")
	flag.Parse()

	opts := loadOptions{
		MaxBytes:              *maxBytes,
		ArtifactPublicBaseURL: strings.TrimSpace(*artifactPublicBaseURL),
	}
	ctx := context.Background()

	var s3cfg config.S3Config
	needS3 := strings.HasPrefix(*input, "s3://") || strings.TrimSpace(*publishBucket) != ""
	if needS3 {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fail("load config: %v", err)
		}
		s3cfg = cfg.Storage.S3
	}

	var cases []CaseEntry
	var err error
	if strings.HasPrefix(*input, "s3://") {
		bucket, prefix, parseErr := parseS3URI(*input)
		if parseErr != nil {
			fail("parse s3 input: %v", parseErr)
		}
		cases, err = loadS3Cases(ctx, s3cfg, bucket, prefix, opts)
	} else {
		cases, err = loadLocalCases(*input, opts)
	}
	if err != nil {
		fail("load cases: %v", err)
	}
	sortCases(cases)

	site := SiteData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Source:      *input,
		Cases:       cases,
	}
	if err := writeJSON(*output, site); err != nil {
		fail("write json: %v", err)
	}

	publishCfg := publishOptions{PublicBaseURL: strings.TrimSpace(*publishPublicBaseURL)}
	if bucket := strings.TrimSpace(*publishBucket); bucket != "" {
		publishCfg.S3 = s3cfg
		publishCfg.S3.Enabled = true
		publishCfg.S3.Bucket = bucket
		publishCfg.S3.Prefix = strings.TrimSpace(*publishPrefix)
	}
	manifestURL, err := publishReports(ctx, publishCfg, *output)
	if err != nil {
		fail("publish reports: %v", err)
	}
	if manifestURL != "" {
		util.Infof("published report manifest to %s", manifestURL)
	}
	util.Infof("report json written to %s (%d cases)", filepath.Join(*output, "reports.json"), len(cases))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// sortCases puts failing cases first, newest first within each group.
func sortCases(cases []CaseEntry) {
	sort.SliceStable(cases, func(i, j int) bool {
		if cases[i].Passed != cases[j].Passed {
			return !cases[i].Passed
		}
		return cases[i].Timestamp > cases[j].Timestamp
	})
}

func loadLocalCases(root string, opts loadOptions) ([]CaseEntry, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	cases := make([]CaseEntry, 0, len(dirs))
	for _, dirEntry := range dirs {
		if !dirEntry.IsDir() {
			continue
		}
		dir := filepath.Join(root, dirEntry.Name())
		data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
		if err != nil {
			continue
		}
		files := make(map[string]FileContent, len(caseFiles)+1)
		for _, name := range caseFiles {
			files[name] = readFileContent(filepath.Join(dir, name), opts.MaxBytes)
		}
		if _, err := os.Stat(filepath.Join(dir, report.CaseArchiveName)); err == nil {
			files[report.CaseArchiveName] = binaryFile(report.CaseArchiveName)
		}
		entry, err := newCaseEntry(data, dirEntry.Name(), files, opts)
		if err != nil {
			util.Warnf("skip case %s: %v", dir, err)
			continue
		}
		entry.Dir = dir
		cases = append(cases, entry)
	}
	return cases, nil
}

func newCaseEntry(summaryData []byte, fallbackID string, files map[string]FileContent, opts loadOptions) (CaseEntry, error) {
	var summary report.Summary
	if err := json.Unmarshal(summaryData, &summary); err != nil {
		return CaseEntry{}, errors.Wrap(err, "decode summary")
	}
	caseID := caseIDFromSummary(summary, fallbackID)
	entry := CaseEntry{
		ID:             caseID,
		EntryPoint:     summary.EntryPoint,
		RunID:          summary.RunID,
		Seed:           summary.Seed,
		Passed:         summary.Passed,
		Total:          summary.Total,
		Failures:       summary.Failures,
		GaveUp:         summary.GaveUp,
		Canceled:       summary.Canceled,
		Timestamp:      summary.Timestamp,
		CaseID:         caseID,
		CaseDir:        caseDirFromSummary(summary, caseID),
		ArchiveName:    summary.ArchiveName,
		ArchiveCodec:   summary.ArchiveCodec,
		UploadLocation: summary.UploadLocation,
		Details:        summary.Details,
		Files:          files,
	}
	if summary.RunInfo != nil {
		entry.Commit = summary.RunInfo.Commit
	}
	if summary.FirstFailure != nil {
		entry.FirstVerdict = summary.FirstFailure.Verdict
		entry.FirstReason = summary.FirstFailure.Reason
	}
	entry.SummaryURL = deriveUploadObjectURL(summary.UploadLocation, "summary.json", opts.ArtifactPublicBaseURL)
	entry.ArchiveURL = deriveUploadObjectURL(summary.UploadLocation, summary.ArchiveName, opts.ArtifactPublicBaseURL)
	return entry, nil
}

func binaryFile(name string) FileContent {
	return FileContent{Name: name, Content: "(binary)", Truncated: true}
}

func readFileContent(path string, maxBytes int) FileContent {
	f, err := os.Open(path)
	if err != nil {
		return FileContent{Name: filepath.Base(path)}
	}
	defer util.CloseWithErr(f, "report input")
	content, truncated, err := readLimited(f, maxBytes)
	if err != nil {
		return FileContent{Name: filepath.Base(path)}
	}
	return FileContent{Name: filepath.Base(path), Content: content, Truncated: truncated}
}

func readLimited(r io.Reader, maxBytes int) (string, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(maxBytes)+1))
	if err != nil {
		return "", false, err
	}
	truncated := len(data) > maxBytes
	if truncated {
		data = data[:maxBytes]
	}
	return string(data), truncated, nil
}

func writeJSON(output string, site SiteData) error {
	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(output, "reports.json"))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "report output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(site)
}

func parseS3URI(input string) (bucket string, prefix string, err error) {
	trimmed := strings.TrimPrefix(input, "s3://")
	if trimmed == "" {
		return "", "", errors.New("missing s3 bucket")
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = strings.TrimPrefix(parts[1], "/")
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
	}
	return bucket, prefix, nil
}

func loadS3Cases(ctx context.Context, cfg config.S3Config, bucket, prefix string, opts loadOptions) ([]CaseEntry, error) {
	client, err := uploader.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	keys, objectSet, err := listSummaryKeys(ctx, client, bucket, prefix)
	if err != nil {
		return nil, err
	}
	cases := make([]CaseEntry, 0, len(keys))
	for _, key := range keys {
		dir := strings.TrimSuffix(key, "/summary.json")
		data, _, err := readObjectLimited(ctx, client, bucket, key, opts.MaxBytes)
		if err != nil {
			util.Warnf("skip case %s: %v", dir, err)
			continue
		}
		files := make(map[string]FileContent, len(caseFiles)+1)
		for _, name := range caseFiles {
			content, truncated, err := readObjectLimited(ctx, client, bucket, dir+"/"+name, opts.MaxBytes)
			if err != nil {
				files[name] = FileContent{Name: name}
				continue
			}
			files[name] = FileContent{Name: name, Content: content, Truncated: truncated}
		}
		if _, ok := objectSet[dir+"/"+report.CaseArchiveName]; ok {
			files[report.CaseArchiveName] = binaryFile(report.CaseArchiveName)
		}
		entry, err := newCaseEntry([]byte(data), filepath.Base(dir), files, opts)
		if err != nil {
			util.Warnf("skip case %s: %v", dir, err)
			continue
		}
		entry.Dir = "s3://" + bucket + "/" + dir
		cases = append(cases, entry)
	}
	return cases, nil
}

func listSummaryKeys(ctx context.Context, client *s3.Client, bucket, prefix string) ([]string, map[string]struct{}, error) {
	var keys []string
	objectSet := make(map[string]struct{})
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			objectSet[key] = struct{}{}
			if strings.HasSuffix(key, "/summary.json") {
				keys = append(keys, key)
			}
		}
	}
	return keys, objectSet, nil
}

func readObjectLimited(ctx context.Context, client *s3.Client, bucket, key string, maxBytes int) (string, bool, error) {
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "get object %s", key)
	}
	defer util.CloseWithErr(resp.Body, "s3 response body")
	return readLimited(resp.Body, maxBytes)
}

func caseIDFromSummary(summary report.Summary, fallback string) string {
	if id := strings.TrimSpace(summary.CaseID); id != "" {
		return id
	}
	if id := strings.TrimSpace(summary.CaseDir); id != "" {
		return id
	}
	return fallback
}

func caseDirFromSummary(summary report.Summary, caseID string) string {
	if v := strings.TrimSpace(summary.CaseDir); v != "" {
		return v
	}
	return caseID
}

func deriveUploadObjectURL(uploadLocation, name, artifactPublicBaseURL string) string {
	name = strings.TrimSpace(name)
	upload := strings.TrimSpace(uploadLocation)
	if name == "" || upload == "" {
		return ""
	}
	if isHTTPURL(upload) {
		return objectURL(upload, name)
	}
	if !strings.HasPrefix(strings.ToLower(upload), "s3://") {
		return ""
	}
	publicBase := strings.TrimSpace(artifactPublicBaseURL)
	if publicBase == "" {
		return ""
	}
	_, prefix, err := parseS3URI(upload)
	if err != nil {
		return ""
	}
	return objectURL(publicBase, objectKey(prefix, name))
}

func isHTTPURL(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func objectURL(base, name string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if base == "" || name == "" {
		return ""
	}
	return base + "/" + name
}

func objectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func publishReports(ctx context.Context, opts publishOptions, output string) (string, error) {
	if !opts.S3.Enabled {
		return "", nil
	}
	client, err := uploader.NewS3Client(ctx, opts.S3)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(output, "reports.json"))
	if err != nil {
		return "", err
	}
	key := objectKey(opts.S3.Prefix, "reports.json")
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(opts.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put %s", key)
	}
	if opts.PublicBaseURL != "" {
		return objectURL(opts.PublicBaseURL, key), nil
	}
	return fmt.Sprintf("s3://%s/%s", opts.S3.Bucket, key), nil
}
