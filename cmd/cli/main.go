package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "customers":
		handleCustomers(args)
	case "users":
		handleUsers(args)
	case "products":
		handleProducts(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: catalogapi auth <login|logout|who>")
		return
	}

	switch args[0] {
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleCustomers(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: catalogapi customers <list|get|create|delete>")
		return
	}

	switch args[0] {
	case "list":
		listCustomers(args[1:])
	case "get":
		getOne("customers", args[1:])
	case "create":
		createCustomer(args[1:])
	case "delete":
		deleteOne("customers", args[1:])
	default:
		fmt.Printf("unknown customers command: %s\n", args[0])
	}
}

func handleUsers(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: catalogapi users <list|get|create|delete>")
		return
	}

	switch args[0] {
	case "list":
		listUsers(args[1:])
	case "get":
		getOne("users", args[1:])
	case "create":
		createUser(args[1:])
	case "delete":
		deleteOne("users", args[1:])
	default:
		fmt.Printf("unknown users command: %s\n", args[0])
	}
}

func handleProducts(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: catalogapi products <list|get|create|delete>")
		return
	}

	switch args[0] {
	case "list":
		listProducts(args[1:])
	case "get":
		getOne("products", args[1:])
	case "create":
		createProduct(args[1:])
	case "delete":
		deleteOne("products", args[1:])
	default:
		fmt.Printf("unknown products command: %s\n", args[0])
	}
}

// Auth commands
func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Println("Error: username and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"username": *username, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *username)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// List commands
func listCustomers(args []string) {
	items, ok := fetchList("customers", args)
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, c := range items {
		fmt.Fprintf(w, "%v\t%v\n", c["id"], c["name"])
	}
	w.Flush()
}

func listUsers(args []string) {
	items, ok := fetchList("users", args)
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tCUSTOMER")
	for _, u := range items {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", u["id"], u["username"], u["email"], u["customerId"])
	}
	w.Flush()
}

func listProducts(args []string) {
	fs := flag.NewFlagSet("products list", flag.ExitOnError)
	page := fs.String("page", "", "page number")
	limit := fs.String("limit", "", "page size")
	brand := fs.String("brand", "", "filter by brand")
	fs.Parse(args)

	url := getAPIURL() + "/products" + queryString(*page, *limit, *brand)
	items, ok := fetchURL(url)
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBRAND\tNAME")
	for _, p := range items {
		fmt.Fprintf(w, "%v\t%v\t%v\n", p["id"], p["brand"], p["name"])
	}
	w.Flush()
}

// Create commands
func createCustomer(args []string) {
	fs := flag.NewFlagSet("customers create", flag.ExitOnError)
	name := fs.String("name", "", "customer name")
	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	postJSON("customers", map[string]string{"name": *name})
}

func createUser(args []string) {
	fs := flag.NewFlagSet("users create", flag.ExitOnError)
	username := fs.String("username", "", "username (min 5 chars)")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (min 8 chars)")
	role := fs.String("role", "", "role (ROLE_USER or ROLE_COMPANY_ADMIN)")
	fs.Parse(args)

	if *username == "" || *email == "" || *password == "" {
		fmt.Println("Error: username, email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"username": *username,
		"email":    *email,
		"password": *password,
	}
	if *role != "" {
		payload["role"] = *role
	}
	postJSON("users", payload)
}

func createProduct(args []string) {
	fs := flag.NewFlagSet("products create", flag.ExitOnError)
	brand := fs.String("brand", "", "brand")
	name := fs.String("name", "", "product name")
	description := fs.String("description", "", "description")
	reference := fs.String("reference", "", "reference code")
	fs.Parse(args)

	if *brand == "" || *name == "" || *reference == "" {
		fmt.Println("Error: brand, name and reference are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"brand":     *brand,
		"name":      *name,
		"reference": *reference,
	}
	if *description != "" {
		payload["description"] = *description
	}
	postJSON("products", payload)
}

// Shared verbs
func getOne(resource string, args []string) {
	if len(args) < 1 {
		fmt.Printf("Usage: catalogapi %s get <id>\n", resource)
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/"+resource+"/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var pretty bytes.Buffer
	var raw bytes.Buffer
	raw.ReadFrom(resp.Body)
	if resp.StatusCode != 200 {
		fmt.Printf("✗ Request failed (%d): %s\n", resp.StatusCode, raw.String())
		return
	}
	if err := json.Indent(&pretty, raw.Bytes(), "", "  "); err != nil {
		fmt.Println(raw.String())
		return
	}
	fmt.Println(pretty.String())
}

func deleteOne(resource string, args []string) {
	if len(args) < 1 {
		fmt.Printf("Usage: catalogapi %s delete <id>\n", resource)
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/"+resource+"/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 204 {
		fmt.Printf("✓ Deleted %s %s\n", resource, args[0])
	} else {
		fmt.Printf("✗ Delete failed (%d)\n", resp.StatusCode)
	}
}

func fetchList(resource string, args []string) ([]map[string]interface{}, bool) {
	fs := flag.NewFlagSet(resource+" list", flag.ExitOnError)
	page := fs.String("page", "", "page number")
	limit := fs.String("limit", "", "page size")
	fs.Parse(args)

	return fetchURL(getAPIURL() + "/" + resource + queryString(*page, *limit, ""))
}

func fetchURL(url string) ([]map[string]interface{}, bool) {
	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Request failed (%d): %v\n", resp.StatusCode, result)
		return nil, false
	}

	var items []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&items)
	return items, true
}

func postJSON(resource string, payload map[string]string) {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/"+resource, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Created %s: %v (at %s)\n", resource, result["id"], resp.Header.Get("Location"))
	} else {
		fmt.Printf("✗ Create failed (%d): %v\n", resp.StatusCode, result)
	}
}

func queryString(page, limit, brand string) string {
	q := ""
	sep := "?"
	if page != "" {
		q += sep + "page=" + page
		sep = "&"
	}
	if limit != "" {
		q += sep + "limit=" + limit
		sep = "&"
	}
	if brand != "" {
		q += sep + "brand=" + brand
	}
	return q
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("CATALOGAPI_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.catalogapi/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.catalogapi", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`catalogapi CLI

Usage:
  catalogapi <command> [options]

Commands:
  auth       Authentication (login, logout, who)
  customers  Customer operations (list, get, create, delete) - admin for writes
  users      User operations (list, get, create, delete)
  products   Product operations (list, get, create, delete) - admin for writes
  help       Show this help message

Environment Variables:
  CATALOGAPI_API    API endpoint (default: http://localhost:8080/api)

Examples:
  catalogapi auth login -username admin -password secret
  catalogapi customers list -page 1 -limit 3
  catalogapi users create -username newuser -email new@example.com -password secret123
  catalogapi products list -brand Acme
`)
}
