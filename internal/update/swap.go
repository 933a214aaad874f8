package update

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// asideSuffix names the copy of the previous tree kept during a swap.
const asideSuffix = ".old"

// swapTree moves newTree into target. An existing target is first renamed
// aside and only removed after newTree is in place; if that second rename
// fails the aside copy is renamed back. At every point at least one
// complete tree exists on disk.
func swapTree(newTree, target string, logger zerolog.Logger) error {
	aside := target + asideSuffix

	if _, err := os.Stat(aside); err == nil {
		if _, err := os.Stat(target); err == nil {
			// Leftover from a swap whose cleanup failed.
			if err := os.RemoveAll(aside); err != nil {
				return fmt.Errorf("failed to remove stale %s: %w", aside, err)
			}
		}
	}

	movedAside := false
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, aside); err != nil {
			return fmt.Errorf("failed to move previous package aside: %w", err)
		}
		movedAside = true
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to inspect %s: %w", target, err)
	} else {
		logger.Info().Msg("No previous package found")
	}

	if err := os.Rename(newTree, target); err != nil {
		if movedAside {
			if rbErr := os.Rename(aside, target); rbErr != nil {
				return fmt.Errorf("failed to install new package (%v) and to restore previous one: %w", err, rbErr)
			}
		}
		return fmt.Errorf("failed to install new package: %w", err)
	}

	if movedAside {
		if err := os.RemoveAll(aside); err != nil {
			logger.Warn().Err(err).Str("path", aside).Msg("Failed to remove previous package")
		}
	}
	return nil
}

// recoverTree restores the aside copy left by a swap that was interrupted
// between its two renames. It reports whether anything was restored.
func recoverTree(target string) (bool, error) {
	if _, err := os.Stat(target); err == nil || !os.IsNotExist(err) {
		return false, nil
	}
	aside := target + asideSuffix
	if _, err := os.Stat(aside); err != nil {
		return false, nil
	}
	if err := os.Rename(aside, target); err != nil {
		return false, fmt.Errorf("failed to restore %s: %w", aside, err)
	}
	return true, nil
}
