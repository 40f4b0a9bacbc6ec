package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"examgrader/pkg/ocr"

	"github.com/disintegration/imaging"
)

// Writes the enhanced image next to the input so the preprocessing can be
// inspected by eye.
func main() {
	in := flag.String("file", "", "image file to enhance")
	out := flag.String("out", "", "output path (default <file>.ocr.png)")
	flag.Parse()
	if *in == "" {
		log.Fatalf("-file required")
	}
	img, err := imaging.Open(*in, imaging.AutoOrientation(true))
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".ocr.png"
	}
	if err := imaging.Save(ocr.Enhance(img), dst); err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Printf("wrote %s (contrast x%.1f, sharpen sigma %.1f)\n", dst, ocr.ContrastFactor, ocr.SharpenSigma)
}
