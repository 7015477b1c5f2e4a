// Package util provides utility functions shared by the Copilot CLI tools.
// It includes helpers for proxy configuration and outbound HTTP client setup.
package util

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/copilot-cli/copilot-cli/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// NewHTTPClient builds an outbound HTTP client honoring the configured proxy.
func NewHTTPClient(cfg *config.Config, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if cfg == nil || cfg.ProxyURL == "" {
		return client
	}
	return SetProxy(cfg, client)
}

// SetProxy configures the provided HTTP client with proxy settings from the configuration.
// It supports SOCKS5, HTTP, and HTTPS proxies. The function modifies the client's transport
// to route requests through the configured proxy server.
func SetProxy(cfg *config.Config, httpClient *http.Client) *http.Client {
	var transport *http.Transport
	proxyURL, errParse := url.Parse(cfg.ProxyURL)
	if errParse == nil {
		if proxyURL.Scheme == "socks5" {
			// Configure SOCKS5 proxy with optional authentication.
			var proxyAuth *proxy.Auth
			if proxyURL.User != nil {
				username := proxyURL.User.Username()
				password, _ := proxyURL.User.Password()
				proxyAuth = &proxy.Auth{User: username, Password: password}
			}
			dialer, errSOCKS5 := proxy.SOCKS5("tcp", proxyURL.Host, proxyAuth, proxy.Direct)
			if errSOCKS5 != nil {
				log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
				return httpClient
			}
			transport = &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				},
			}
		} else if proxyURL.Scheme == "http" || proxyURL.Scheme == "https" {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		} else {
			log.Warnf("unsupported proxy scheme %q, ignoring proxy", proxyURL.Scheme)
			return httpClient
		}
	} else {
		log.Errorf("parse proxy url failed: %v", errParse)
		return httpClient
	}

	httpClient.Transport = transport
	return httpClient
}
