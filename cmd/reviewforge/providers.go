package main

// Reviewer blank imports — each import activates a self-registering reviewer
// backend. Add new reviewer kinds here as they are implemented.

import (
	_ "github.com/Strob0t/ReviewForge/internal/adapter/anthropic"
	_ "github.com/Strob0t/ReviewForge/internal/adapter/copilotcli"
	_ "github.com/Strob0t/ReviewForge/internal/adapter/gemini"
	_ "github.com/Strob0t/ReviewForge/internal/adapter/httpjson"
	_ "github.com/Strob0t/ReviewForge/internal/adapter/selfreview"
)
