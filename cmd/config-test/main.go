package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/chrissnell/weatherdash/pkg/config"
)

func main() {
	yamlFile := flag.String("config", "", "Path to YAML settings file")
	flag.Parse()

	if *yamlFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -config <config.yaml>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Settings Validation Test")
	fmt.Println("========================")

	fmt.Printf("Loading YAML settings: %s\n", *yamlFile)
	settings, err := config.NewYAMLProvider(*yamlFile).LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Settings are valid")

	fmt.Println("\nQuantities:")
	fmt.Println("===========")
	for i, q := range settings.Quantities {
		fmt.Printf("%d. %-24s color=%-12s colorscheme=%s\n", i, q, settings.GraphColor(i), settings.ContourColorSchemes[i])
	}

	fmt.Println("\nForecast:")
	fmt.Println("=========")
	fmt.Printf("%d steps of %gh\n", settings.ForecastSettings.Range, settings.ForecastSettings.Step)

	fmt.Println("\nDefault view:")
	fmt.Println("=============")
	dv := settings.DefaultView
	fmt.Printf("quantity=%s station=%d time=%d model=%s\n", dv.QuantityName, dv.Station, dv.Time, dv.Model.Label())

	fmt.Println("\nModel parameters:")
	fmt.Println("=================")
	printParams("kNN", settings.KNNModelParams)
	printParams("SVR", settings.SVRModelParams)
	printParams("GBR", settings.GBRModelParams)
	if !settings.GBR.Seeded() {
		fmt.Println("! GBR has no random_state; contour maps for GBR are not reproducible")
	}
}

func printParams(name string, params map[string]any) {
	if len(params) == 0 {
		fmt.Printf("%s: defaults\n", name)
		return
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	fmt.Printf("%s: %s\n", name, strings.Join(parts, ", "))
}
