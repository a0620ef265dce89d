package mcpserver

func describeFindDuplicates() string {
	return `Finds Python functions and methods that duplicate each other.

USE WHEN:
- Looking for copy-pasted helpers before adding another one
- Picking candidates to merge into a shared utility
- Checking whether a refactor left behind a stale copy

INTERPRETING RESULTS:
- strategy "exact": bodies equal after collapsing whitespace
- strategy "ast": same syntax tree once names, literals and docstrings are erased
- Each cluster lists two or more units with identical keys; every score is 1.0
- __init__ methods are skipped unless include_init is set

METRICS RETURNED:
- units: id, file, rel_path, qualname, span [start, end]
- clusters: member_ids, strategy, score range
- matches: every pair inside a cluster
- meta: applied and requested strategy, unit counts, cluster size stats`
}

func describeListFiles() string {
	return `Lists the Python modules a scan would analyze, with line, byte and function counts.

USE WHEN:
- Checking which files include/exclude patterns and .gitignore leave in scope
- Sizing a directory before running find_duplicates

INTERPRETING RESULTS:
- units counts every function and method, nested ones included
- parse_error marks modules that do not parse; they contribute no units

METRICS RETURNED:
- Per-file: rel_path, lines, bytes, units
- Totals: files, lines, units`
}
