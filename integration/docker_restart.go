//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// restartShopContainer bounces the shop service so the test can check that
// state survives on a persistent store driver.
func restartShopContainer(t *testing.T, ctx context.Context) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", "compose", "restart", getenv("E2E_SHOP_SERVICE", "shop"))
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart shop failed: %v\n%s", err, string(out))
	}
}
