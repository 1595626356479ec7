// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestURLSegment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple title", input: "Hello World", expected: "hello-world"},
		{name: "with special characters", input: "Hello, World!", expected: "hello-world"},
		{name: "with numbers", input: "Page 123", expected: "page-123"},
		{name: "with accents", input: "Café résumé", expected: "cafe-resume"},
		{name: "with multiple spaces", input: "Hello   World", expected: "hello-world"},
		{name: "with hyphens", input: "Hello - World", expected: "hello-world"},
		{name: "with leading/trailing spaces", input: "  Hello World  ", expected: "hello-world"},
		{name: "all special characters", input: "!@#$%^&*()", expected: ""},
		{name: "german umlauts", input: "Über München", expected: "uber-munchen"},
		{name: "cyrillic", input: "Привет", expected: "privet"},
		{name: "suffixed duplicate", input: "Home (1)", expected: "home-1"},
		{name: "empty string", input: "", expected: ""},
		{name: "mixed case", input: "HeLLo WoRLd", expected: "hello-world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := URLSegment(tt.input)
			if result != tt.expected {
				t.Errorf("URLSegment(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{name: "root", input: nil, want: "/"},
		{name: "single", input: []string{"Home"}, want: "/home/"},
		{name: "nested", input: []string{"Home", "About Us"}, want: "/home/about-us/"},
		{name: "empty segment skipped", input: []string{"Home", "!!", "Café"}, want: "/home/cafe/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(tt.input...); got != tt.want {
				t.Errorf("Route(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
