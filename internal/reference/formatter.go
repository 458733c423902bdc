package reference

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/doclibre/ragline/internal/model"
)

// Options controls the optional storage-key to weblink rewrite. When Rewrite
// is set, a key's leading KeyPrefix becomes URLPrefix and a trailing
// KeySuffix becomes URLSuffix, e.g. "website/report.md" ->
// "https://internal-site.us/report.html".
type Options struct {
	Rewrite   bool   `json:"use_weblink_conversion"`
	KeyPrefix string `json:"key_prefix_to_remove"`
	URLPrefix string `json:"weblink_prefix"`
	KeySuffix string `json:"key_suffix_to_remove"`
	URLSuffix string `json:"weblink_suffix"`
}

type Formatter struct {
	opts Options
}

func NewFormatter(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// Format renders references as a bulleted list, one line each, in input
// order. Page wins over heading; a heading becomes a URL fragment when
// rewriting is enabled, plain text otherwise.
func (f *Formatter) Format(refs []model.Reference) string {
	var sb strings.Builder
	for _, ref := range refs {
		document := ref.Document
		if f.opts.Rewrite {
			if f.opts.KeyPrefix != "" && strings.HasPrefix(document, f.opts.KeyPrefix) {
				document = f.opts.URLPrefix + strings.TrimPrefix(document, f.opts.KeyPrefix)
			}
			if f.opts.KeySuffix != "" && strings.HasSuffix(document, f.opts.KeySuffix) {
				document = strings.TrimSuffix(document, f.opts.KeySuffix) + f.opts.URLSuffix
			}
		}
		switch {
		case ref.Page > 0:
			fmt.Fprintf(&sb, "\n- %s page: %d", document, ref.Page)
		case ref.Heading != "" && f.opts.Rewrite:
			fmt.Fprintf(&sb, "\n- %s#%s", document, url.PathEscape(ref.Heading))
		case ref.Heading != "":
			fmt.Fprintf(&sb, "\n- %s heading: %s", document, ref.Heading)
		default:
			fmt.Fprintf(&sb, "\n- %s", document)
		}
	}
	return sb.String()
}
