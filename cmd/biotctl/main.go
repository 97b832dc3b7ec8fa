// biotctl is a command-line client for the Bio-T configuration snapshot
// engine: export a configuration snapshot into a report store, inspect a
// stored report, import one into an organization, or transfer a
// configuration between organizations.
//
// Connection settings come from flags or from the environment:
//
//	BIOT_BASE_URL, BIOT_USERNAME, BIOT_PASSWORD, BIOT_TOKEN
//
// The report store backend is selected by BIOT_REPORT_STORE_DRIVER, see
// the reportstore package.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := newCLI()
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "biotctl:", err)
		os.Exit(1)
	}
}
