package stackmanager

import "testing"

func TestUpsertSecretThenListShowsConfigured(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	if err := m.UpsertSecret("CHAT_TOKEN_SECRET", "tok-value"); err != nil {
		t.Fatalf("UpsertSecret: %v", err)
	}

	list, err := m.ListSecretManagerState()
	if err != nil {
		t.Fatalf("ListSecretManagerState: %v", err)
	}
	found := false
	for _, s := range list {
		if s.Name == "CHAT_TOKEN_SECRET" {
			found = true
			if !s.Configured {
				t.Fatalf("expected CHAT_TOKEN_SECRET marked configured")
			}
		}
	}
	if !found {
		t.Fatalf("expected CHAT_TOKEN_SECRET in list, got %v", list)
	}
}

func TestDeleteSecretRefusesWhenInUseByEnabledChannel(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	if err := m.UpsertSecret("CHAT_TOKEN_SECRET", "tok-value"); err != nil {
		t.Fatalf("UpsertSecret: %v", err)
	}
	if _, err := m.SetChannelConfig("chat", map[string]string{"CHAT_INBOUND_TOKEN": "${CHAT_TOKEN_SECRET}"}); err != nil {
		t.Fatalf("SetChannelConfig: %v", err)
	}

	err := m.DeleteSecret("CHAT_TOKEN_SECRET")
	if err == nil {
		t.Fatalf("expected secret_in_use error")
	}
	if got := CodeOf(err); got != "secret_in_use" {
		t.Fatalf("CodeOf = %q, want secret_in_use", got)
	}
}

func TestDeleteSecretRefusesCoreRequirement(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	if err := m.UpsertSecret("POSTGRES_PASSWORD", "pw"); err != nil {
		t.Fatalf("UpsertSecret: %v", err)
	}
	err := m.DeleteSecret("POSTGRES_PASSWORD")
	if CodeOf(err) != "secret_in_use" {
		t.Fatalf("CodeOf = %q, want secret_in_use", CodeOf(err))
	}
}

func TestDeleteSecretSucceedsWhenUnused(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	if err := m.UpsertSecret("SOME_UNUSED_SECRET", "v"); err != nil {
		t.Fatalf("UpsertSecret: %v", err)
	}
	if err := m.DeleteSecret("SOME_UNUSED_SECRET"); err != nil {
		t.Fatalf("DeleteSecret: %v", err)
	}
	list, err := m.ListSecretManagerState()
	if err != nil {
		t.Fatalf("ListSecretManagerState: %v", err)
	}
	for _, s := range list {
		if s.Name == "SOME_UNUSED_SECRET" && s.Configured {
			t.Fatalf("expected SOME_UNUSED_SECRET no longer configured")
		}
	}
}

func TestDeleteSecretUnknownName(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	err := m.DeleteSecret("NEVER_SET")
	if CodeOf(err) != "unknown_secret_name" {
		t.Fatalf("CodeOf = %q, want unknown_secret_name", CodeOf(err))
	}
}
