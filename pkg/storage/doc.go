// Package storage owns the on-disk layout of downloaded media.
//
// Filenames are derived from the media item alone, so a second run maps
// each item to the same path and can skip it. Writes stream into a uniquely
// named ".part" file next to the target and are renamed into place only
// after the body has been fully copied; a failed or cancelled write never
// leaves a file under the final name.
//
// The Manager works on an afero.Fs so tests can run against MemMapFs.
//
//	store := storage.NewManager(afero.NewOsFs())
//	dir := filepath.Join("downloads", "alice")
//	_ = store.EnsureDir(dir)
//	n, err := store.WriteAtomic(ctx, filepath.Join(dir, storage.Filename(item)), body)
package storage
