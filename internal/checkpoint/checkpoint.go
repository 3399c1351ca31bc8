package checkpoint

import "strings"

// ListTags returns the tag portion of every checkpoint key belonging to
// name, for the LISTCHECKPOINTS verb of §4.9.
func ListTags(store Enumerable, name string) ([]string, error) {
	prefix := name + "/"
	var tags []string
	err := store.ForEach(func(k Key) error {
		if s := string(k); strings.HasPrefix(s, prefix) {
			tags = append(tags, s[len(prefix):])
		}
		return nil
	})
	return tags, err
}
