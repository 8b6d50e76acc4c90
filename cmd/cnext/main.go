package main

import (
	"flag"
	"fmt"
	"os"

	cnext "github.com/jlaustill/cnext"
)

const version = "0.1.0"

// stringList collects a repeatable flag's values in the order given.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type args struct {
	output       *string
	forceCpp     *bool
	parseOnly    *bool
	includeDirs  stringList
	target       *string
	cacheDir     *string
	pioInstall   *bool
	pioUninstall *bool
	showVersion  *bool
	showHelp     *bool
}

func readArgs() *args {
	a := &args{
		output:       flag.String("o", "", "Override output path"),
		forceCpp:     flag.Bool("cpp", false, "Force C++ emission"),
		parseOnly:    flag.Bool("parse", false, "Parse and analyse only; write no output"),
		target:       flag.String("target", "", "Target profile: teensy41|cortex-m0|avr|host|..."),
		cacheDir:     flag.String("cache-dir", "", "Enable the parse cache and store it here"),
		pioInstall:   flag.Bool("pio-install", false, "Install PlatformIO build integration in CWD"),
		pioUninstall: flag.Bool("pio-uninstall", false, "Remove PlatformIO build integration from CWD"),
		showVersion:  flag.Bool("version", false, "Print version and exit 0"),
		showHelp:     flag.Bool("help", false, "Print help and exit 0"),
	}
	flag.Var(&a.includeDirs, "include", "Prepend to include search path (repeatable)")
	flag.BoolVar(a.showVersion, "v", false, "Print version and exit 0")
	flag.BoolVar(a.showHelp, "h", false, "Print help and exit 0")
	flag.Parse()
	return a
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: cnext <input.cnx> [options]
       cnext version

  -o <path>              Override output path
  --cpp                  Force C++ emission
  --parse                Parse and analyse only; write no output
  --include <dir>        Prepend to include search path (repeatable)
  --target <profile>     Target profile: teensy41|cortex-m0|avr|host|...
  --cache-dir <dir>      Enable the parse cache and store it here
  --pio-install          Install PlatformIO build integration in CWD
  --pio-uninstall        Remove PlatformIO build integration from CWD
  --version, -v          Print version and exit 0
  --help, -h             Print help and exit 0`)
}

func main() {
	a := readArgs()

	if flag.NArg() == 1 && flag.Arg(0) == "version" {
		fmt.Println("cnext " + version)
		os.Exit(0)
	}
	if *a.showHelp || (flag.NArg() == 0 && !*a.pioInstall && !*a.pioUninstall && !*a.showVersion) {
		printUsage()
		os.Exit(0)
	}
	if *a.showVersion {
		fmt.Println("cnext " + version)
		os.Exit(0)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *a.pioInstall {
		status, err := cnext.PioInstall(cwd)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(status)
		return
	}
	if *a.pioUninstall {
		status, err := cnext.PioUninstall(cwd)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(status)
		return
	}

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	cfg := cnext.NewConfig()
	if *a.cacheDir != "" {
		cfg.SetString("cache.dir", *a.cacheDir)
		cfg.SetBool("cache.enabled", true)
	}
	loader := cnext.NewRelativeImportLoader(a.includeDirs...)
	driver := cnext.NewDriver(cfg, loader)

	mode := cnext.ModeAuto
	if *a.forceCpp {
		mode = cnext.ModeForceCpp
	}

	var result *cnext.CompileUnitResult
	if *a.parseOnly {
		result, err = driver.ParseAndAnalyse(inputPath, *a.target)
	} else {
		result, err = driver.CompileFile(inputPath, mode, *a.output, *a.target)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if msg := cnext.FormatDiagnostics(result.Diagnostics); msg != "" {
		fmt.Fprint(os.Stderr, msg)
	}

	os.Exit(cnext.ExitCode(result.Diagnostics))
}
