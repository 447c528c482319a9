package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/afd/gf-layers/chain"
	"github.com/afd/gf-layers/dispatch"
	"github.com/afd/gf-layers/manifest"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	badStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666"))
)

func main() {
	var (
		manifestPath = flag.String("manifest", "", "Path to a layer discovery manifest (JSON)")
		listFuncs    = flag.Bool("funcs", false, "List the manifest's declared functions and exit")
		verify       = flag.Bool("verify", false, "Check the manifest against this core's interface window")
		interactive  = flag.Bool("i", false, "Interactive browser (requires a terminal)")
	)
	flag.Parse()

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: gf-inspect -manifest <layer.json> [-funcs] [-verify]")
		fmt.Fprintln(os.Stderr, "       gf-inspect -manifest <layer.json> -i  (interactive mode)")
		os.Exit(1)
	}

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(m); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listFuncs {
		for _, fn := range m.Layer.Functions {
			fmt.Println(fn)
		}
		return
	}

	printSummary(m)
	if *verify {
		printVerification(m)
	}
}

func printSummary(m *manifest.Manifest) {
	l := &m.Layer
	fmt.Println(headerStyle.Render(l.Name))
	if l.Description != "" {
		fmt.Println(dimStyle.Render(l.Description))
	}
	fmt.Printf("%s %s\n", labelStyle.Render("library:"), l.LibraryPath)
	fmt.Printf("%s %s (implementation %s)\n", labelStyle.Render("api:"), l.APIVersion, l.ImplementationVersion)
	fmt.Printf("%s %d\n", labelStyle.Render("interface:"), l.InterfaceVersion)

	core, ext := splitFunctions(l.Functions)
	fmt.Printf("%s %d declared (%d core, %d extension)\n",
		labelStyle.Render("functions:"), len(l.Functions), core, ext)
}

func splitFunctions(names []string) (core, ext int) {
	for _, fn := range names {
		if isCoreName(fn) {
			core++
		} else {
			ext++
		}
	}
	return core, ext
}

func isCoreName(name string) bool {
	switch name {
	case dispatch.NameNegotiateVersion, dispatch.NameGetProcAddr,
		dispatch.NameGetDeviceProcAddr, dispatch.NameCreateContext,
		dispatch.NameDestroyContext, dispatch.NameCreateDevice,
		dispatch.NameDestroyDevice:
		return true
	}
	return false
}

func printVerification(m *manifest.Manifest) {
	iv := m.Layer.InterfaceVersion
	if iv < chain.MinInterfaceVersion || iv > chain.MaxInterfaceVersion {
		fmt.Println(badStyle.Render(fmt.Sprintf(
			"✗ interface_version %d outside this core's window [%d, %d]",
			iv, chain.MinInterfaceVersion, chain.MaxInterfaceVersion)))
		os.Exit(1)
	}
	fmt.Println(okStyle.Render(fmt.Sprintf(
		"✓ interface_version %d negotiable (window [%d, %d])",
		iv, chain.MinInterfaceVersion, chain.MaxInterfaceVersion)))
}
