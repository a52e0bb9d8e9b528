package integration

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"testing"
)

// TestMain builds the authredirect binary once for all tests
func TestMain(m *testing.M) {
	flag.Parse()

	fmt.Println("Building authredirect binary...")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/authredirect")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		fmt.Printf("Failed to build authredirect: %v\n", err)
		os.Exit(1)
	}

	logFile := "authredirect-test.log"
	os.Setenv("AUTHREDIRECT_LOG_FILE", logFile)

	exitCode := m.Run()
	if exitCode != 0 {
		showTestFailureDiagnostics(logFile)
	}
	os.Exit(exitCode)
}

// showTestFailureDiagnostics prints the tail of the server log
func showTestFailureDiagnostics(logFile string) {
	data, err := os.ReadFile(logFile)
	if err != nil {
		return
	}
	fmt.Println("\n========== TEST FAILURE DIAGNOSTICS ==========")
	const tail = 4096
	if len(data) > tail {
		data = data[len(data)-tail:]
	}
	fmt.Println(string(data))
	fmt.Println("==============================================")
}
