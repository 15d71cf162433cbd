package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	spotter "go-propaganda-spotter"
	"go-propaganda-spotter/internal/config"
	"go-propaganda-spotter/pkg/processing"
)

func main() {
	var in, cfgPath, outDir, ext string
	var overlay bool

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&cfgPath, "config", "", "path to JSON config file (defaults used when empty)")
	flag.StringVar(&outDir, "out", "out", "output directory for overlay images")
	flag.StringVar(&ext, "ext", "jpg", "overlay output format: jpg|png|webp")
	flag.BoolVar(&overlay, "overlay", false, "write an overlay image with the detected boxes")
	flag.Parse()

	if in == "" {
		log.Fatalf("usage: %s -in input.jpg|URL [-config config.json] [-overlay] [-out outdir] [-ext jpg|png|webp]",
			filepath.Base(os.Args[0]))
	}

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	cfg.ApplyEnv()

	s, err := spotter.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	imgBytes, err := readInput(in)
	if err != nil {
		log.Fatal(err)
	}

	report := s.AnalyzeBytes(context.Background(), imgBytes)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))

	if !report.Success {
		os.Exit(1)
	}

	if overlay {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			log.Fatal(err)
		}
		proc := processing.NewProcessor()
		img, err := proc.DecodeBytes(imgBytes)
		if err != nil {
			log.Fatal(err)
		}
		overlayImg := proc.CreateOverlay(img, report.BoundingBoxes)
		path := filepath.Join(outDir, fmt.Sprintf("overlay.%s", strings.ToLower(ext)))
		if err := proc.SaveImage(overlayImg, path, ext); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s (%d boxes)", path, len(report.BoundingBoxes))
	}
}

// readInput loads raw image bytes from a file path or HTTP(S) URL.
func readInput(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Get(source)
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(source)
}
