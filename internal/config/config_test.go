package config

import "testing"

func TestSetCLIVariableInfersType(t *testing.T) {
	opts := Default()
	if err := opts.SetCLIVariable("count=3"); err != nil {
		t.Fatalf("SetCLIVariable error = %v", err)
	}
	v := opts.Variables["count"]
	if n, ok := v.AsInt(); !ok || n != 3 {
		t.Errorf("count variable = %v, want int 3", v)
	}

	if err := opts.SetCLIVariable("name=alice"); err != nil {
		t.Fatalf("SetCLIVariable error = %v", err)
	}
	v = opts.Variables["name"]
	if s, ok := v.AsString(); !ok || s != "alice" {
		t.Errorf("name variable = %v, want string \"alice\"", v)
	}

	if err := opts.SetCLIVariable("enabled=true"); err != nil {
		t.Fatalf("SetCLIVariable error = %v", err)
	}
	v = opts.Variables["enabled"]
	if b, ok := v.AsBool(); !ok || !b {
		t.Errorf("enabled variable = %v, want bool true", v)
	}
}

func TestSetCLIVariableRejectsMissingEquals(t *testing.T) {
	opts := Default()
	if err := opts.SetCLIVariable("novalue"); err == nil {
		t.Error("expected an error for a --variable flag with no '='")
	}
}

func TestSetCLISecretRegistersRedactor(t *testing.T) {
	opts := Default()
	if err := opts.SetCLISecret("token=s3cr3t"); err != nil {
		t.Fatalf("SetCLISecret error = %v", err)
	}
	if opts.Redactor == nil {
		t.Fatal("expected Redactor to be initialized after SetCLISecret")
	}
	v := opts.Variables["token"]
	if s, ok := v.AsString(); !ok || s != "s3cr3t" {
		t.Errorf("token variable = %v, want string \"s3cr3t\"", v)
	}

	got := opts.Redactor.Redact("Authorization: Bearer s3cr3t")
	if got == "Authorization: Bearer s3cr3t" {
		t.Error("expected the secret value to be redacted from diagnostic text")
	}
}

func TestApplyEnvSetsVariablesAndColor(t *testing.T) {
	opts := Default()
	opts.Color = true
	opts.ApplyEnv([]string{
		"HURL_VARIABLE_greeting=hello",
		"NO_COLOR=1",
		"IRRELEVANT=ignored",
	})

	v, ok := opts.Variables["greeting"]
	if !ok {
		t.Fatal("expected HURL_VARIABLE_greeting to set a \"greeting\" variable")
	}
	if s, sok := v.AsString(); !sok || s != "hello" {
		t.Errorf("greeting variable = %v, want string \"hello\"", v)
	}
	if opts.Color {
		t.Error("NO_COLOR should disable Color")
	}
}

func TestDefaultHasDocumentedDefaults(t *testing.T) {
	opts := Default()
	if opts.MaxRedirects != 50 {
		t.Errorf("MaxRedirects = %d, want 50", opts.MaxRedirects)
	}
	if opts.Parallel != 1 {
		t.Errorf("Parallel = %d, want 1", opts.Parallel)
	}
	if opts.FromEntry != 1 {
		t.Errorf("FromEntry = %d, want 1", opts.FromEntry)
	}
	if opts.ToEntry != -1 {
		t.Errorf("ToEntry = %d, want -1", opts.ToEntry)
	}
	if opts.Repeat != 1 {
		t.Errorf("Repeat = %d, want 1", opts.Repeat)
	}
}
