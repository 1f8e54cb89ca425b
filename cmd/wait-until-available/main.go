package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Usage example on the command line:
// > go run main.go --url http://localhost:8080/health --interval 5s --timeout 2m
func main() {
	var (
		url      string
		interval time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:          "wait-until-available",
		Short:        "Poll the health endpoint of the contacts service until it answers with OK",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return waitUntilAvailable(url, interval, timeout)
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/health", "health endpoint of the service")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "time between two attempts")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this time, 0 waits forever")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func waitUntilAvailable(url string, interval time.Duration, timeout time.Duration) error {
	client := &http.Client{Timeout: interval}
	var totalWaitTime time.Duration
	for {
		res, err := client.Get(url)
		if err == nil {
			res.Body.Close()
			fmt.Println(res.Status)
			if res.StatusCode == http.StatusOK {
				return nil
			}
		} else {
			fmt.Println(err)
		}
		if timeout > 0 && totalWaitTime >= timeout {
			return fmt.Errorf("service not available after %s", totalWaitTime)
		}
		totalWaitTime += interval
		fmt.Printf("Waiting %s\n", totalWaitTime)
		time.Sleep(interval)
	}
}
