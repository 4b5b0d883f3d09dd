// Package mender implements device-initiated OTA updates: listing release
// artifacts from the Mender server and installing them through the local
// mender-update tool.
package mender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/owl-os/retina-console/pkg/logger"
	"github.com/owl-os/retina-console/pkg/pipeline"
)

// Defaults for the hosted Mender setup the appliance ships with.
const (
	DefaultServerURL  = "https://hosted.mender.io"
	DefaultRelease    = "retina-node"
	DefaultDeviceType = "pi5-v3-arm64"

	commandTimeout        = 5 * time.Second
	apiTimeout            = 30 * time.Second
	DefaultInstallTimeout = 10 * time.Minute
)

// ErrNotAuthenticated indicates the device has no Mender JWT yet.
var ErrNotAuthenticated = errors.New("device not authenticated with Mender")

// ErrInstallInFlight indicates an installation is already running. A new
// install is rejected rather than queued.
var ErrInstallInFlight = errors.New("an installation is already in progress")

// Artifact is one deployable release artifact as the Mender device API
// reports it.
type Artifact struct {
	ID   string `json:"id"`
	Name string `json:"artifact_name"`
}

// Versions holds the rootfs-image versions mender-update reports. On a
// fresh bootstrap only the OS version exists; the app version appears after
// the first app OTA update.
type Versions struct {
	OwlOS      string `json:"owlOs,omitempty"`
	RetinaNode string `json:"retinaNode,omitempty"`
}

// runner executes a local command and returns its stdout. Swapped out in
// tests.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Client pulls artifacts from a Mender server for one release/device type.
type Client struct {
	serverURL      string
	release        string
	deviceType     string
	httpClient     *http.Client
	installTimeout time.Duration
	run            runner
	installGate    *semaphore.Weighted
}

// Option configures a Client.
type Option func(*Client)

// WithServerURL overrides the Mender server URL.
func WithServerURL(u string) Option {
	return func(c *Client) { c.serverURL = strings.TrimRight(u, "/") }
}

// WithRelease overrides the release name artifacts are listed for.
func WithRelease(name string) Option {
	return func(c *Client) { c.release = name }
}

// WithDeviceType overrides the device type artifacts are listed for.
func WithDeviceType(t string) Option {
	return func(c *Client) { c.deviceType = t }
}

// WithInstallTimeout overrides the bound on mender-update install.
func WithInstallTimeout(d time.Duration) Option {
	return func(c *Client) { c.installTimeout = d }
}

// WithHTTPClient overrides the HTTP client used for Mender API calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a Mender client with the appliance defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		serverURL:      DefaultServerURL,
		release:        DefaultRelease,
		deviceType:     DefaultDeviceType,
		httpClient:     &http.Client{Timeout: apiTimeout},
		installTimeout: DefaultInstallTimeout,
		run:            execRunner,
		installGate:    semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// JWT fetches the device JWT from mender-auth over D-Bus. It returns the
// token and the server URL mender-auth is talking to.
func (c *Client) JWT(ctx context.Context) (token, serverURL string, err error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := c.run(ctx, "busctl", "call",
		"io.mender.AuthenticationManager",
		"/io/mender/AuthenticationManager",
		"io.mender.Authentication1",
		"GetJwtToken")
	if err != nil {
		return "", "", ErrNotAuthenticated
	}

	token, serverURL, ok := parseJWTOutput(string(out))
	if !ok {
		return "", "", ErrNotAuthenticated
	}
	return token, serverURL, nil
}

// parseJWTOutput extracts the two quoted strings from busctl's reply,
// formatted as: ss "token" "server_url".
func parseJWTOutput(out string) (token, serverURL string, ok bool) {
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, "ss ") {
		return "", "", false
	}
	parts := strings.Split(out[3:], `" "`)
	if len(parts) != 2 {
		return "", "", false
	}
	token = strings.Trim(parts[0], `"`)
	serverURL = strings.Trim(parts[1], `"`)
	return token, serverURL, token != ""
}

// Versions reports the installed owl-os and retina-node versions from the
// Mender provides database. Missing entries are left empty.
func (c *Client) Versions(ctx context.Context) (Versions, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := c.run(ctx, "mender-update", "show-provides")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			// mender-update not installed (dev environment).
			return Versions{}, nil
		}
		return Versions{}, fmt.Errorf("failed to read mender provides: %w", err)
	}
	return parseProvides(string(out)), nil
}

func parseProvides(out string) Versions {
	var v Versions
	for _, line := range strings.Split(out, "\n") {
		if after, ok := strings.CutPrefix(line, "rootfs-image.owl-os-pi5.version="); ok {
			v.OwlOS = strings.TrimSpace(after)
		} else if after, ok := strings.CutPrefix(line, "rootfs-image.retina-node.version="); ok {
			v.RetinaNode = strings.TrimSpace(after)
		}
	}
	return v
}

// ListArtifacts lists the artifacts available for the configured release
// and device type.
func (c *Client) ListArtifacts(ctx context.Context) ([]Artifact, error) {
	token, _, err := c.JWT(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/devices/v1/deployments/artifacts", c.serverURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	q := url.Values{}
	q.Set("release_name", c.release)
	q.Set("device_type", c.deviceType)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Mender server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Mender API returned status %d", resp.StatusCode)
	}

	var artifacts []Artifact
	if err := json.NewDecoder(resp.Body).Decode(&artifacts); err != nil {
		return nil, fmt.Errorf("failed to decode artifact list: %w", err)
	}
	return artifacts, nil
}

// DownloadURL resolves the signed download URL for an artifact.
func (c *Client) DownloadURL(ctx context.Context, artifactID string) (string, error) {
	token, _, err := c.JWT(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/api/devices/v1/deployments/artifacts/%s/download", c.serverURL, url.PathEscape(artifactID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach Mender server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get download URL: status %d", resp.StatusCode)
	}

	var body struct {
		URI string `json:"uri"`
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read download response: %w", err)
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "", fmt.Errorf("failed to decode download response: %w", err)
	}
	if body.URI == "" {
		return "", errors.New("download response carried no URI")
	}
	return body.URI, nil
}

// Install downloads and installs an artifact through mender-update. It
// blocks until the installation finishes or the install timeout expires,
// and rejects concurrent installs.
func (c *Client) Install(ctx context.Context, downloadURL string) error {
	if !c.installGate.TryAcquire(1) {
		return ErrInstallInFlight
	}
	defer c.installGate.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.installTimeout)
	defer cancel()

	logger.Infof("installing artifact from %s", downloadURL)
	out, err := c.run(ctx, "mender-update", "install", downloadURL)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("installation exceeded %v: %w", c.installTimeout, pipeline.ErrTimeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("installation failed: %s: %w", msg, err)
		}
		return fmt.Errorf("installation failed: %w", err)
	}
	logger.Info("artifact installed")
	return nil
}

// InstallLatest installs the newest stable artifact for the configured
// release. It returns the artifact that was installed.
func (c *Client) InstallLatest(ctx context.Context) (*Artifact, error) {
	artifacts, err := c.ListArtifacts(ctx)
	if err != nil {
		return nil, err
	}

	latest := LatestStable(artifacts, c.release)
	if latest == nil {
		return nil, fmt.Errorf("no stable %s artifact available", c.release)
	}

	downloadURL, err := c.DownloadURL(ctx, latest.ID)
	if err != nil {
		return nil, err
	}
	if err := c.Install(ctx, downloadURL); err != nil {
		return nil, err
	}
	return latest, nil
}
