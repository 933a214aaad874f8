package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/adamancini/shimsync/internal/catalog"
	"github.com/adamancini/shimsync/internal/config"
	"github.com/adamancini/shimsync/internal/guard"
	"github.com/adamancini/shimsync/internal/journal"
	"github.com/adamancini/shimsync/internal/output"
	"github.com/adamancini/shimsync/internal/provision"
	"github.com/adamancini/shimsync/internal/update"
)

const timeLayout = "2006-01-02 15:04:05"

type provisionSummary struct{ r *provision.Result }

func (v provisionSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Provisioned app %d in %s\n", output.OK("✓"), v.r.AppID, v.r.TargetDir)

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Emulator\t%s\n", v.r.Package)
	for _, a := range v.r.Artifacts {
		fmt.Fprintf(w, "  %s\treplaced, original kept as %s\n", a.Kind, a.BackupPath)
	}
	settings := v.r.SettingsDir
	if v.r.Generated {
		settings += " (generated)"
	}
	fmt.Fprintf(w, "  Settings\t%s\n", settings)
	fmt.Fprintf(w, "  Saves\t%s", v.r.SaveDir)
	_ = w.Flush()
	return b.String()
}

type outcomeView struct{ o update.Outcome }

func (v outcomeView) String() string {
	switch v.o.Status {
	case update.StatusUpdated:
		return output.OK("✓") + " " + v.o.String()
	case update.StatusNoReleaseAvailable:
		return output.Warn("!") + " " + v.o.String()
	default:
		return v.o.String()
	}
}

func stateLabel(s guard.State) string {
	switch s {
	case guard.StateReplaced:
		return output.OK(string(s))
	case guard.StateBackedUp:
		return output.Warn(string(s))
	case guard.StateNotBackedUp:
		return output.Fail(string(s))
	default:
		return output.Dim(string(s))
	}
}

type targetView struct{ t *targetReport }

func (v targetView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Steam API directory: %s\n", v.t.Dir)
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for i, a := range v.t.Artifacts {
		fmt.Fprintf(w, "  %s\t%s\t%s", a.Kind, a.Kind.FileName(), stateLabel(a.State))
		if i < len(v.t.Artifacts)-1 {
			fmt.Fprintln(w)
		}
	}
	_ = w.Flush()
	return b.String()
}

type statusView struct{ s *statusReport }

func (v statusView) String() string {
	var b strings.Builder
	if !v.s.Installed {
		fmt.Fprintf(&b, "%s No emulator package installed in %s\n", output.Warn("!"), v.s.PackageDir)
		b.WriteString("Run 'shimsync update' to download the latest release.")
	} else {
		fmt.Fprintf(&b, "Emulator package: %s\n", output.Bold(v.s.Version))
		fmt.Fprintf(&b, "Location: %s", v.s.PackageDir)
		if r := v.s.Receipt; r != nil {
			fmt.Fprintf(&b, "\nInstalled: %s", r.InstalledAt.Local().Format(timeLayout))
			fmt.Fprintf(&b, "\nSource: %s", r.SourceURL)
			fmt.Fprintf(&b, "\nDigest: %s", output.Dim(r.Digest))
		}
	}
	if v.s.Target != nil {
		b.WriteString("\n\n")
		b.WriteString(targetView{v.s.Target}.String())
	}
	return b.String()
}

type refreshView struct{ r refreshReport }

func (v refreshView) String() string {
	return fmt.Sprintf("%s Cached %d apps in %s", output.OK("✓"), v.r.Apps, v.r.Cache)
}

type matchesView struct {
	query string
	apps  []catalog.App
}

func (v matchesView) String() string {
	if len(v.apps) == 0 {
		return fmt.Sprintf("No games match %q.", v.query)
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "APP ID\tNAME")
	for _, app := range v.apps {
		fmt.Fprintf(w, "\n%d\t%s", app.AppID, app.Name)
	}
	_ = w.Flush()
	return b.String()
}

type historyView struct {
	dir  string
	runs []journal.RunInfo
}

func (v historyView) String() string {
	if len(v.runs) == 0 {
		return fmt.Sprintf("No runs recorded.\nJournal directory: %s", v.dir)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Runs recorded in %s:\n\n", v.dir)
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "ID\tStarted\tApp\tTarget\tSize")
	for _, r := range v.runs {
		fmt.Fprintf(w, "\n%s\t%s\t%d\t%s\t%s",
			r.ID,
			r.StartedAt.Local().Format(timeLayout),
			r.AppID,
			r.TargetDir,
			formatSize(r.Size),
		)
	}
	_ = w.Flush()
	return b.String()
}

type runView struct{ r *journal.Run }

func (v runView) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run\t%s\n", v.r.ID)
	fmt.Fprintf(w, "Started\t%s\n", v.r.StartedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "Finished\t%s\n", v.r.FinishedAt.Local().Format(timeLayout))
	if v.r.Query != "" {
		fmt.Fprintf(w, "Query\t%s\n", v.r.Query)
	}
	fmt.Fprintf(w, "App ID\t%d\n", v.r.AppID)
	fmt.Fprintf(w, "Target\t%s\n", v.r.TargetDir)
	if v.r.PackageVersion != "" {
		fmt.Fprintf(w, "Package\t%s (%s)\n", v.r.PackageVersion, v.r.PackageStatus)
	}
	for _, a := range v.r.Artifacts {
		fmt.Fprintf(w, "%s\t%s -> %s\n", a.Kind, a.Original, a.Backup)
	}
	fmt.Fprintf(w, "Generated\t%t\n", v.r.Generated)
	fmt.Fprintf(w, "Saves\t%s\n", v.r.SaveDir)
	fmt.Fprintf(w, "shimsync\t%s", v.r.ShimsyncVersion)
	_ = w.Flush()
	return b.String()
}

type pruneView struct{ r *journal.PruneResult }

func (v pruneView) String() string {
	if len(v.r.Deleted) == 0 {
		return fmt.Sprintf("Nothing to prune (%d runs kept).", v.r.Kept)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Pruned %d runs, kept %d:", len(v.r.Deleted), v.r.Kept)
	for _, r := range v.r.Deleted {
		fmt.Fprintf(&b, "\n  - %s", r.ID)
	}
	return b.String()
}

type configView struct{ c *config.Config }

func (v configView) String() string {
	var b strings.Builder
	source := v.c.Path
	if source == "" {
		source = "(defaults and environment only)"
	}
	fmt.Fprintf(&b, "Config file: %s\n\n", source)

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"release_index_url", v.c.ReleaseIndexURL},
		{"app_list_url", v.c.AppListURL},
		{"http_timeout", v.c.HTTPTimeout.String()},
		{"lock_wait", v.c.LockWait.String()},
		{"data_dir", v.c.DataDir},
		{"cache_dir", v.c.CacheDir},
		{"work_dir", v.c.WorkDir},
		{"save_dir", v.c.SaveDir},
		{"credentials_file", v.c.CredentialsFile},
		{"generator.command", v.c.Generator.Command},
		{"generator.args", strings.Join(v.c.Generator.Args, " ")},
		{"journal.dir", v.c.Journal.Dir},
		{"journal.keep", fmt.Sprint(v.c.Journal.Keep)},
	}
	for i, row := range rows {
		value := row[1]
		if value == "" {
			value = output.Dim("(unset)")
		}
		fmt.Fprintf(w, "%s\t%s", row[0], value)
		if i < len(rows)-1 {
			fmt.Fprintln(w)
		}
	}
	_ = w.Flush()
	return b.String()
}

type pathsView []string

func (v pathsView) String() string {
	return strings.Join(v, "\n")
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
