// Package config loads spork's layered configuration.
//
// Layers, lowest to highest precedence:
//  1. Built-in defaults
//  2. Global config: $XDG_CONFIG_HOME/spork/config.yaml (or ~/.config/spork/config.yaml)
//  3. Local config: .spork.yaml in the repository root
//  4. Environment variables
//
// A file layer only overrides the keys it sets:
//
//	# .spork.yaml
//	worktree_dir: ../wt
//	base_branches: [trunk]
//	git:
//	  fetch_timeout: 1m
//
// Environment variables:
//
//	SPORK_WORKTREE_DIR=../wt       # worktree_dir
//	SPORK_BASE_BRANCHES=trunk,main # base_branches
//	SPORK_GIT=/usr/local/bin/git   # git.command
//	SPORK_ASSISTANT=claude         # assistant.command
//	SPORK_NO_FETCH=1               # fetch: false
//
// Unknown keys and invalid values are reported as *Error.
package config
