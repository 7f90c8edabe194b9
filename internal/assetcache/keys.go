package assetcache

import "fmt"

const keyPrefix = "segmap:assets"

func entryKey(cacheName, url string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, cacheName, url)
}
