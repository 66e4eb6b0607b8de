package main

import "errors"

var errCullNeedsCacheMirror = errors.New("cull requires transport.cache_mirror to be enabled (no other ctfile fetcher is wired)")
