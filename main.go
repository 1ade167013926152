// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("Backend-Parcelas - Agricultural Sensor Aggregation Backend")
	fmt.Println("==========================================================")
	fmt.Println()
	fmt.Println("The agrosync package keeps a document store of sensor readings in sync")
	fmt.Println("with an external feed and joins them against relational ownership records.")
	fmt.Println()
	fmt.Println("Example:")
	fmt.Println()
	fmt.Println("  Monitor server (examples/monitor_server/)")
	fmt.Println("  HTTP API over the sync engine and the cross-store join layer")
	fmt.Println("  Run: cd examples/monitor_server && go run .")
	fmt.Println()
}
