package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/post-editor/internal/config"
)

const header = "# Post editor configuration example\n# Copy this file to config.yaml and customize as needed\n\n"

// generate writes the default configuration as commented YAML.
func generate(w io.Writer) error {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error generating YAML: %w", err)
	}

	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err = w.Write(yamlData)
	return err
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [output file | -]\n", os.Args[0])
	}
	flag.Parse()

	outputFile := "config.example.yaml"
	if flag.NArg() > 0 {
		outputFile = flag.Arg(0)
	}

	if outputFile == "-" {
		if err := generate(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	f, err := os.Create(outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	if err := generate(f); err != nil {
		f.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
