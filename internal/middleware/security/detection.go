package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	applog "cashbook/internal/log"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64 `json:"suspicious_requests"`
	InvalidIPAttempts  int64 `json:"invalid_ip_attempts"`
}

// Detector handles suspicious request detection and client IP resolution.
type Detector struct {
	suspicious     int64
	invalidIP      int64
	trustedProxies []*net.IPNet
}

var defaultTrustedProxies = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
}

var unusualMethods = map[string]bool{
	"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
}

// NewDetector creates a detector trusting forwarding headers from private
// networks plus any extra CIDRs given.
func NewDetector(extraTrusted ...string) (*Detector, error) {
	d := &Detector{}
	for _, cidr := range append(append([]string{}, defaultTrustedProxies...), extraTrusted...) {
		if err := d.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// DetectSuspiciousRequest analyzes request patterns for potential threats
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if d.looksSuspicious(r) {
		atomic.AddInt64(&d.suspicious, 1)
		return true
	}
	return false
}

func (d *Detector) looksSuspicious(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := r.URL.RawQuery
	if decoded, err := url.QueryUnescape(query); err == nil {
		query = decoded
	}
	query = strings.ToLower(query)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return true
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}

	if unusualMethods[r.Method] {
		return true
	}

	// Overlong URLs and deep proxy chains.
	if len(r.URL.String()) > 2048 {
		return true
	}
	return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
}

// ExtractClientIP extracts the real client IP, validating forwarded headers
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		atomic.AddInt64(&d.invalidIP, 1)
		return directIP
	}

	// Forwarding headers are only honoured from a trusted proxy.
	if d.isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(clientIP) != nil {
				return clientIP
			}
			atomic.AddInt64(&d.invalidIP, 1)
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
			atomic.AddInt64(&d.invalidIP, 1)
		}
	}

	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		InvalidIPAttempts:  atomic.LoadInt64(&d.invalidIP),
	}
}

// AddTrustedProxy adds a trusted proxy network. Not safe to call while serving.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// Middleware rejects suspicious requests through onBlock (a plain 400 when nil)
// and logs them with the client address.
func (d *Detector) Middleware(onBlock func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !d.DetectSuspiciousRequest(r) {
				next.ServeHTTP(w, r)
				return
			}

			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request blocked",
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))

			if onBlock != nil {
				onBlock(w, r)
				return
			}
			http.Error(w, "Bad request", http.StatusBadRequest)
		})
	}
}
