package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/photo-gallery/internal/config"
	"github.com/dvloznov/photo-gallery/internal/gallery"
	"github.com/dvloznov/photo-gallery/internal/logger"
	"github.com/dvloznov/photo-gallery/internal/naming"
	"github.com/dvloznov/photo-gallery/internal/objstore"
	"github.com/dvloznov/photo-gallery/internal/objstore/backend"
	"github.com/dvloznov/photo-gallery/internal/qr"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "upload":
		runUpload(log)
	case "list":
		runList(log)
	case "qrcode":
		runQRCode(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Photo Gallery CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  upload    Upload a local image under the incoming prefix")
	fmt.Println("  list      List processed images with their uploaders")
	fmt.Println("  qrcode    Write a QR code PNG pointing at a gallery home page")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nStorage settings come from the environment (see .env).")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

// openStore loads configuration and opens the configured backend.
func openStore(ctx context.Context, log zerolog.Logger) (*config.Config, objstore.Store) {
	cfg, _, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	store, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open object store")
	}
	return cfg, store
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	name := fs.String("name", "", "Uploader name (required)")
	filePath := fs.String("file", "", "Path to local image (required)")
	fs.Parse(os.Args[2:])

	if strings.TrimSpace(*name) == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -name NAME -file PATH")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to open file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to stat file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg, store := openStore(ctx, log)
	defer store.Close()

	uploader := gallery.NewUploader(store, naming.NewUnderscoreCodec(), cfg.Storage.IncomingPrefix, log)

	filename := filepath.Base(*filePath)
	key, err := uploader.Upload(ctx, gallery.UploadRequest{
		Name:        *name,
		Filename:    filename,
		ContentType: mime.TypeByExtension(filepath.Ext(filename)),
		Size:        info.Size(),
		Body:        f,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s/%s\n", *filePath, cfg.Storage.Bucket, key)
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print records as JSON lines")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, store := openStore(ctx, log)
	defer store.Close()

	urls := gallery.NewPublicURLResolver(cfg.Storage.PublicBaseURL, cfg.Storage.Bucket, cfg.Storage.ProcessedPrefix)
	lister := gallery.NewLister(store, naming.NewUnderscoreCodec(), urls, cfg.Storage.ProcessedPrefix, log)

	images, err := lister.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list images")
	}

	if err := printImages(os.Stdout, images, *asJSON); err != nil {
		log.Fatal().Err(err).Msg("Failed to print images")
	}
}

func printImages(w io.Writer, images []gallery.ImageRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, img := range images {
			if err := enc.Encode(img); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UPLOADER\tFILENAME\tURL")
	for _, img := range images {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", img.Uploader, img.Filename, img.URL)
	}
	fmt.Fprintf(tw, "\n%d image(s)\n", len(images))
	return tw.Flush()
}

func runQRCode(log zerolog.Logger) {
	fs := flag.NewFlagSet("qrcode", flag.ExitOnError)
	baseURL := fs.String("url", "", "Public base URL of the gallery, e.g. https://gallery.example (required)")
	out := fs.String("out", "gallery-qr.png", "Output PNG path")
	size := fs.Int("size", qr.DefaultSize, "Image size in pixels")
	fs.Parse(os.Args[2:])

	if *baseURL == "" {
		log.Fatal().Msg("Usage: cli qrcode -url BASE_URL [-out FILE] [-size PX]")
	}

	target := strings.TrimRight(*baseURL, "/") + "/home"
	png, err := qr.PNG(target, *size)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate QR code")
	}

	if err := os.WriteFile(*out, png, 0o644); err != nil {
		log.Fatal().Err(err).Str("out", *out).Msg("Failed to write QR code")
	}

	fmt.Printf("Wrote QR code for %s to %s\n", target, *out)
}
