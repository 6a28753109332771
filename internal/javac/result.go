package javac

import (
	"slices"
	"sort"
)

// ArchiveEntries lists what was read from one archive (jar or ct.sym).
// All marks a use that cannot be narrowed to entries: the whole archive is
// a dependency.
type ArchiveEntries struct {
	All     bool     `json:"all,omitempty"`
	Entries []string `json:"entries,omitempty"`
}

// Result is the structured outcome of one compiler invocation.
type Result struct {
	// SourceToGenerated maps every source the compiler parsed to the files it
	// wrote for it. Sources parsed but not compiled map to an empty list.
	SourceToGenerated map[string][]string

	// LoadedClassFiles are plain class files read from disk, in first-load order.
	LoadedClassFiles []string

	// LoadedFromArchive maps an archive to the entries read from it.
	LoadedFromArchive map[string]*ArchiveEntries
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{
		SourceToGenerated: make(map[string][]string),
		LoadedFromArchive: make(map[string]*ArchiveEntries),
	}
}

// AddSourceFile records that source was parsed.
func (r *Result) AddSourceFile(source string) {
	if _, ok := r.SourceToGenerated[source]; !ok {
		r.SourceToGenerated[source] = nil
	}
}

// AddGeneratedFile records that gen was written while compiling source.
func (r *Result) AddGeneratedFile(source, gen string) {
	gens := r.SourceToGenerated[source]
	if slices.Contains(gens, gen) {
		return
	}
	r.SourceToGenerated[source] = append(gens, gen)
}

// AddLoadedClassFile records a class file read from disk.
func (r *Result) AddLoadedClassFile(path string) {
	if slices.Contains(r.LoadedClassFiles, path) {
		return
	}
	r.LoadedClassFiles = append(r.LoadedClassFiles, path)
}

// AddArchiveEntry records that entry was read from archive.
func (r *Result) AddArchiveEntry(archive, entry string) {
	ae := r.archive(archive)
	if ae.All || slices.Contains(ae.Entries, entry) {
		return
	}
	ae.Entries = append(ae.Entries, entry)
}

// AddWholeArchive records a use of archive that cannot be narrowed.
func (r *Result) AddWholeArchive(archive string) {
	ae := r.archive(archive)
	ae.All = true
	ae.Entries = nil
}

func (r *Result) archive(path string) *ArchiveEntries {
	ae, ok := r.LoadedFromArchive[path]
	if !ok {
		ae = &ArchiveEntries{}
		r.LoadedFromArchive[path] = ae
	}
	return ae
}

// Sources returns the parsed sources in lexical order.
func (r *Result) Sources() []string {
	out := make([]string, 0, len(r.SourceToGenerated))
	for src := range r.SourceToGenerated {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// Archives returns the consulted archives in lexical order.
func (r *Result) Archives() []string {
	out := make([]string, 0, len(r.LoadedFromArchive))
	for a := range r.LoadedFromArchive {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// GeneratedCount returns the number of files written by the compiler.
func (r *Result) GeneratedCount() int {
	n := 0
	for _, gens := range r.SourceToGenerated {
		n += len(gens)
	}
	return n
}
