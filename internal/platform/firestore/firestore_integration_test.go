//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	pconfig "github.com/parcelroute/api/internal/platform/config"
	pfirestore "github.com/parcelroute/api/internal/platform/firestore"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

type rateRow struct {
	From string  `firestore:"fromCurrency"`
	To   string  `firestore:"toCurrency"`
	Rate float64 `firestore:"rate"`
}

func TestProviderAndLookupTableIntegration(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	defer stopContainer(containerID)

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "test-project",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := provider.Client(ctx)
	if err != nil {
		t.Fatalf("expected firestore client, got error: %v", err)
	}
	if client == nil {
		t.Fatalf("provider returned nil client")
	}

	// The service never writes rates. Seed them through the raw client, the way
	// the ops tooling that owns the tables would.
	seed := map[string]rateRow{
		"INR_LKR": {From: "INR", To: "LKR", Rate: 3.65},
		"LKR_LKR": {From: "LKR", To: "LKR", Rate: 0},
	}
	for id, row := range seed {
		if _, err := client.Collection("exchangeRates").Doc(id).Set(ctx, row); err != nil {
			t.Fatalf("seed %s failed: %v", id, err)
		}
	}

	table := pfirestore.NewLookupTable[rateRow](provider, "exchangeRates", nil)

	row, err := table.Get(ctx, "INR_LKR")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if row.From != "INR" || row.To != "LKR" || row.Rate != 3.65 {
		t.Fatalf("unexpected row: %#v", row)
	}

	// A zero-value row must stay distinguishable from a missing row.
	zero, err := table.Get(ctx, "LKR_LKR")
	if err != nil {
		t.Fatalf("get zero rate failed: %v", err)
	}
	if zero.Rate != 0 {
		t.Fatalf("expected stored zero rate, got %v", zero.Rate)
	}

	if _, err := table.Get(ctx, "USD_JPY"); err == nil {
		t.Fatalf("expected not found error")
	} else {
		type missClassifier interface{ IsNotFound() bool }
		var cls missClassifier
		if !errors.As(err, &cls) {
			t.Fatalf("expected store error, got %v", err)
		}
		if !cls.IsNotFound() {
			t.Fatalf("expected not found classification")
		}
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	// Shorten the ID to match docker CLI behaviour for stop/remove commands.
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		lastErr = err
		time.Sleep(250 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for endpoint")
	}
	t.Fatalf("emulator did not become ready: %v", lastErr)
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Skip("docker daemon unavailable: " + err.Error())
	}
}
