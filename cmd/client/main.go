package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	pub "gitlab.com/dirk.krummacker/contacthub/pkg/model"
)

// client sends requests to the contacts service on behalf of one signed in user.
type client struct {
	baseURL string
	http    *http.Client
}

// Usage example on the command line:
// > go run main.go --url http://localhost:8080 --sizes 100,500,1000
func main() {
	var (
		baseURL string
		sizes   []int
	)
	cmd := &cobra.Command{
		Use:          "client",
		Short:        "Measure the average latency of the contact endpoints",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(baseURL)
			if err != nil {
				return err
			}
			return c.measure(sizes)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the service")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{100, 500, 1000, 5000}, "numbers of contacts per round")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient signs up a fresh user. The session cookie is kept in a cookie jar.
func newClient(baseURL string) (*client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &client{baseURL: baseURL, http: &http.Client{Jar: jar, Timeout: 30 * time.Second}}
	credentials, _ := json.Marshal(pub.Credentials{
		Email:    "load-" + uuid.NewString() + "@example.com",
		Password: uuid.NewString(),
	})
	var session pub.SessionResponse
	if _, err := c.send(http.MethodPost, "/auth/signup", credentials, &session); err != nil {
		return nil, fmt.Errorf("could not sign up: %w", err)
	}
	return c, nil
}

// measure prints one line per size with the average duration of each request type in
// microseconds.
func (c *client) measure(sizes []int) error {
	form, _ := json.Marshal(pub.ContactForm{
		Name:  "Marcus Antonius",
		Email: "marcus@antonius.example",
		Phone: "+39 999 777 555",
	})
	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	for _, loops := range sizes {
		fmt.Printf("%10d", loops)

		// POST requests
		var duration time.Duration
		for i := 0; i < loops; i++ {
			d, err := c.send(http.MethodPost, "/contacts", form, nil)
			if err != nil {
				return err
			}
			duration += d
		}
		printAverage(duration, loops)

		var list pub.ContactList
		if _, err := c.send(http.MethodGet, "/contacts?q=&refresh=true", nil, &list); err != nil {
			return err
		}
		ids := make([]string, 0, len(list.Contacts))
		for _, contact := range list.Contacts {
			ids = append(ids, contact.Id)
		}

		for _, step := range []struct {
			method string
			body   []byte
		}{
			{http.MethodPut, form},
			{http.MethodGet, nil},
			{http.MethodDelete, nil},
		} {
			rand.Shuffle(len(ids), func(i, j int) {
				ids[i], ids[j] = ids[j], ids[i]
			})
			var duration time.Duration
			for _, id := range ids {
				path := "/contacts/" + id
				if step.method == http.MethodGet {
					path = "/contacts?q=" + id
				}
				d, err := c.send(step.method, path, step.body, nil)
				if err != nil {
					return err
				}
				duration += d
			}
			printAverage(duration, len(ids))
		}
		fmt.Println()
	}
	return nil
}

func printAverage(total time.Duration, count int) {
	if count == 0 {
		fmt.Printf("%10s", "-")
		return
	}
	fmt.Printf("%10d", total.Microseconds()/int64(count))
}

// send executes one request and decodes the response into target, if not nil. Responses
// other than 2xx are errors.
func (c *client) send(method string, path string, body []byte, target any) (time.Duration, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("could not create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	before := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error making http request: %w", err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, fmt.Errorf("could not read response body: %w", err)
	}
	duration := time.Since(before)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var message pub.Message
		json.Unmarshal(resBody, &message)
		return duration, fmt.Errorf("%s %s: %s %s", method, path, res.Status, message.Message)
	}
	if target != nil {
		if err := json.Unmarshal(resBody, target); err != nil {
			return duration, fmt.Errorf("could not unmarshal JSON: %w", err)
		}
	}
	return duration, nil
}
