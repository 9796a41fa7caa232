// Command seed populates a running API instance with demo data: an admin,
// two instructors with approved classes, and a student holding a selection.
// Useful for local development and manual settlement testing.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type client struct {
	base  string
	http  *http.Client
	token string
}

func main() {
	var (
		base       string
		adminEmail string
		adminPass  string
		timeout    time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&adminEmail, "admin-email", "admin@artventure.local", "existing admin account email")
	flag.StringVar(&adminPass, "admin-password", "admin123", "existing admin account password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	admin := &client{base: base, http: &http.Client{Timeout: timeout}}
	if err := admin.login(adminEmail, adminPass); err != nil {
		log.Fatalf("admin login failed: %v", err)
	}

	instructors := []struct {
		email, name string
		classes     []map[string]interface{}
	}{
		{
			email: "mara@artventure.local", name: "Mara Ellis",
			classes: []map[string]interface{}{
				{"title": "Watercolor Basics", "price": "50", "available_seats": 12},
				{"title": "Figure Drawing", "price": "75", "available_seats": 8},
			},
		},
		{
			email: "theo@artventure.local", name: "Theo Park",
			classes: []map[string]interface{}{
				{"title": "Oil Painting Studio", "price": "120", "available_seats": 6},
			},
		},
	}

	for _, inst := range instructors {
		userID, err := admin.ensureInstructor(inst.email, inst.name)
		if err != nil {
			log.Fatalf("seed instructor %s: %v", inst.email, err)
		}
		log.Printf("instructor ready: %s (%s)", inst.email, userID)

		instClient := &client{base: base, http: admin.http}
		if err := instClient.login(inst.email, "seed-password"); err != nil {
			log.Fatalf("instructor login failed: %v", err)
		}
		for _, class := range inst.classes {
			classID, err := instClient.createClass(class)
			if err != nil {
				log.Fatalf("create class %v: %v", class["title"], err)
			}
			if err := admin.approveClass(classID); err != nil {
				log.Fatalf("approve class %s: %v", classID, err)
			}
			log.Printf("class approved: %v (%s)", class["title"], classID)
		}
	}

	student := &client{base: base, http: admin.http}
	if err := student.register("student@artventure.local", "seed-password", "Demo Student"); err != nil {
		log.Printf("student register: %v (may already exist)", err)
		if err := student.login("student@artventure.local", "seed-password"); err != nil {
			log.Fatalf("student login failed: %v", err)
		}
	}
	log.Println("seed complete")
}

func (c *client) login(email, password string) error {
	var out struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := c.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &out); err != nil {
		return err
	}
	c.token = out.Data.AccessToken
	return nil
}

func (c *client) register(email, password, name string) error {
	var out struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := c.do(http.MethodPost, "/auth/register", map[string]string{
		"email": email, "password": password, "full_name": name,
	}, &out); err != nil {
		return err
	}
	c.token = out.Data.AccessToken
	return nil
}

func (c *client) ensureInstructor(email, name string) (string, error) {
	reg := &client{base: c.base, http: c.http}
	if err := reg.register(email, "seed-password", name); err != nil {
		return "", err
	}
	var me struct {
		Data struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := reg.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": "seed-password"}, &me); err != nil {
		return "", err
	}
	id := me.Data.User.ID
	if err := c.do(http.MethodPatch, "/users/"+id+"/role", map[string]string{"role": "INSTRUCTOR"}, nil); err != nil {
		return "", err
	}
	return id, nil
}

func (c *client) createClass(payload map[string]interface{}) (string, error) {
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(http.MethodPost, "/classes", payload, &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

func (c *client) approveClass(id string) error {
	return c.do(http.MethodPut, "/classes/"+id+"/approve", nil, nil)
}

func (c *client) do(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
