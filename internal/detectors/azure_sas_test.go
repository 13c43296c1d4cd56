package detectors

import (
	"slices"
	"testing"
)

func TestAzureStorageSAS(t *testing.T) {
	data := `u = "https://acct.blob.core.windows.net/c/file.txt?sv=2022-11-02&se=2020-01-01T00%3A00%3A00Z&sp=r&sig=abcdEFGHijklMNOPqrstUVWX%3D"`
	fs := slices.Collect(AzureStorageSAS().Detect("x.py", data))
	if len(fs) != 1 {
		t.Fatalf("expected azure sas finding, got %d", len(fs))
	}
	if fs[0].Secret[len(fs[0].Secret)-1] == '"' {
		t.Fatalf("closing quote captured: %q", fs[0].Secret)
	}
}

func TestAzureStorageSASNeedsSignature(t *testing.T) {
	data := "https://acct.blob.core.windows.net/c/file.txt?sv=2022-11-02"
	if fs := slices.Collect(AzureStorageSAS().Detect("x", data)); len(fs) != 0 {
		t.Fatalf("expected no finding without sig, got %+v", fs)
	}
}
