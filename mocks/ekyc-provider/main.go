// Mock eKYC OTP provider for local development. It speaks the same wire
// format as the real sandbox API: authenticate for an access token, request
// an OTP for an Aadhaar number, verify the OTP for identity data.
//
// Magic Aadhaar numbers control the mock's behavior so flows can be
// exercised without real credentials. Any OTP of 123456 verifies; anything
// else is rejected as invalid.
package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultPort      = "8091"
	defaultAPIKey    = "mock-ekyc-key"
	defaultAPISecret = "mock-ekyc-secret"
	defaultLatencyMs = "100"

	validOTP = "123456"
)

// Magic Aadhaar numbers. Everything else gets deterministic generated data.
const (
	aadhaarNotFound    = "999999999999" // no such Aadhaar record
	aadhaarRateLimited = "888888888888" // provider rate limit hit
	aadhaarDown        = "777777777777" // provider maintenance window
	aadhaarExpiredOTP  = "666666666666" // OTP always reported expired on verify
	aadhaarMaxAttempts = "555555555555" // attempts always exhausted on verify
)

type authenticateResponse struct {
	AccessToken string `json:"access_token"`
}

type otpRequest struct {
	Entity        string `json:"@entity"`
	AadhaarNumber string `json:"aadhaar_number"`
	Consent       string `json:"consent"`
	Reason        string `json:"reason"`
}

type otpVerifyRequest struct {
	Entity      string `json:"@entity"`
	ReferenceID string `json:"reference_id"`
	OTP         string `json:"otp"`
}

type address struct {
	House       string `json:"house"`
	Landmark    string `json:"landmark"`
	Street      string `json:"street"`
	Subdistrict string `json:"subdistrict"`
	VTC         string `json:"vtc"`
	District    string `json:"district"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	PostOffice  string `json:"post_office"`
	Country     string `json:"country"`
}

type verifyData struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Name        string  `json:"name"`
	CareOf      string  `json:"care_of"`
	DateOfBirth string  `json:"date_of_birth"`
	YearOfBirth int     `json:"year_of_birth"`
	Gender      string  `json:"gender"`
	Photo       string  `json:"photo"`
	FullAddress string  `json:"full_address"`
	Address     address `json:"address"`
}

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	apiSecret = getEnv("API_SECRET", defaultAPISecret)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

	mu       sync.Mutex
	tokens   = map[string]bool{}
	pending  = map[string]string{} // reference id -> aadhaar number
	tokenSeq int
	refSeq   = 100000
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/authenticate", handleAuthenticate)
	http.HandleFunc("/kyc/aadhaar/okyc/otp", handleRequestOTP)
	http.HandleFunc("/kyc/aadhaar/okyc/otp/verify", handleVerifyOTP)

	log.Printf("mock ekyc provider starting on port %s", port)
	log.Printf("api key: %s, simulated latency: %dms, valid otp: %s", apiKey, latencyMs, validOTP)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "mock-ekyc-provider",
	})
}

func handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	simulateLatency()
	if r.Method != http.MethodPost {
		writeProviderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if r.Header.Get("x-api-key") != apiKey || r.Header.Get("x-api-secret") != apiSecret {
		writeProviderError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	mu.Lock()
	tokenSeq++
	token := fmt.Sprintf("mock-token-%d-%d", tokenSeq, rand.IntN(1_000_000))
	tokens[token] = true
	mu.Unlock()

	log.Printf("issued access token %s", token)
	writeJSON(w, http.StatusOK, authenticateResponse{AccessToken: token})
}

func handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	simulateLatency()
	if !authorized(w, r) {
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProviderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.AadhaarNumber) != 12 {
		writeProviderError(w, http.StatusUnprocessableEntity, "Aadhaar number must be 12 digits")
		return
	}
	if req.Consent != "Y" {
		writeProviderError(w, http.StatusUnprocessableEntity, "Consent is required")
		return
	}

	switch req.AadhaarNumber {
	case aadhaarNotFound:
		writeProviderError(w, http.StatusUnprocessableEntity, "Aadhaar number does not exist")
		return
	case aadhaarRateLimited:
		writeProviderError(w, http.StatusTooManyRequests, "Too many requests, try after some time")
		return
	case aadhaarDown:
		writeProviderError(w, http.StatusServiceUnavailable, "Source is unavailable, please try again later")
		return
	}

	mu.Lock()
	refSeq++
	ref := strconv.Itoa(refSeq)
	pending[ref] = req.AadhaarNumber
	mu.Unlock()

	log.Printf("otp requested for %s, reference %s", mask(req.AadhaarNumber), ref)
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"reference_id": json.Number(ref),
			"message":      "OTP sent successfully",
		},
	})
}

func handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	simulateLatency()
	if !authorized(w, r) {
		return
	}

	var req otpVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProviderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mu.Lock()
	aadhaar, ok := pending[req.ReferenceID]
	mu.Unlock()
	if !ok {
		writeProviderError(w, http.StatusUnprocessableEntity, "Invalid reference id, no OTP request found")
		return
	}

	switch aadhaar {
	case aadhaarExpiredOTP:
		writeProviderError(w, http.StatusUnprocessableEntity, "OTP expired")
		return
	case aadhaarMaxAttempts:
		writeProviderError(w, http.StatusUnprocessableEntity, "Maximum attempts exceeded")
		return
	}

	if req.OTP != validOTP {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": verifyData{Status: "INVALID", Message: "Invalid OTP"},
		})
		return
	}

	mu.Lock()
	delete(pending, req.ReferenceID)
	mu.Unlock()

	data := generateIdentity(aadhaar)
	log.Printf("otp verified for %s, reference %s", mask(aadhaar), req.ReferenceID)
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeProviderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	if r.Header.Get("x-api-key") != apiKey {
		writeProviderError(w, http.StatusUnauthorized, "Missing or invalid api key")
		return false
	}
	token := r.Header.Get("authorization")
	mu.Lock()
	ok := tokens[token]
	mu.Unlock()
	if !ok {
		writeProviderError(w, http.StatusForbidden, "Invalid or expired access token")
		return false
	}
	return true
}

// generateIdentity returns deterministic identity data for an Aadhaar number
// so repeated verifications agree with each other.
func generateIdentity(aadhaar string) verifyData {
	hash := sha256.Sum256([]byte(aadhaar))
	n := int(hash[0])

	firstNames := []string{"Asha", "Ravi", "Priya", "Arjun", "Meena", "Suresh", "Kavita", "Vijay", "Lakshmi", "Anil"}
	lastNames := []string{"Kumari", "Sharma", "Patel", "Singh", "Reddy", "Nair", "Gupta", "Joshi", "Iyer", "Das"}
	districts := []string{"Pune", "Mumbai", "Bengaluru", "Chennai", "Hyderabad", "Jaipur", "Lucknow", "Kochi", "Nagpur", "Indore"}
	states := []string{"Maharashtra", "Maharashtra", "Karnataka", "Tamil Nadu", "Telangana", "Rajasthan", "Uttar Pradesh", "Kerala", "Maharashtra", "Madhya Pradesh"}

	name := firstNames[n%len(firstNames)] + " " + lastNames[(n*3)%len(lastNames)]
	gender := "M"
	if n%2 == 0 {
		gender = "F"
	}
	year := 1960 + (n % 45)
	dob := fmt.Sprintf("%02d-%02d-%04d", 1+(n%28), 1+(n%12), year)
	city := districts[n%len(districts)]
	state := states[n%len(states)]
	house := strconv.Itoa(1 + (n % 200))
	pincode := strconv.Itoa(400000 + (n*137)%99999)

	addr := address{
		House:    house,
		Street:   "MG Road",
		VTC:      city,
		District: city,
		State:    state,
		Pincode:  pincode,
		Country:  "India",
	}

	return verifyData{
		Status:      "VALID",
		Message:     "Aadhaar Card Exists",
		Name:        name,
		CareOf:      "C/O " + lastNames[(n*7)%len(lastNames)],
		DateOfBirth: dob,
		YearOfBirth: year,
		Gender:      gender,
		FullAddress: fmt.Sprintf("%s MG Road, %s, %s %s", house, city, state, pincode),
		Address:     addr,
	}
}

func mask(aadhaar string) string {
	if len(aadhaar) < 4 {
		return "****"
	}
	return "XXXXXXXX" + aadhaar[len(aadhaar)-4:]
}

func simulateLatency() {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeProviderError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{"message": message})
	log.Printf("error response: %d - %s", code, message)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v := getEnv(key, fallback)
	n, err := strconv.Atoi(v)
	if err != nil {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}
