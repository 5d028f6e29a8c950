package portal

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rehabcenter/portal/api"
	"github.com/rehabcenter/portal/lfm"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

func serviceOrder(s api.Service) int { return s.OrderIndex }
func partnerOrder(p api.Partner) int { return p.OrderIndex }
func storyOrder(s api.SuccessStory) int { return s.OrderIndex }
func serviceActive(s api.Service) bool { return s.IsActive }
func productActive(p api.Product) bool { return p.IsActive }
func partnerActive(p api.Partner) bool { return p.IsActive }
func storyPublished(s api.SuccessStory) bool { return s.IsPublished }
func postStatus(p api.BlogPost) api.Status { return p.Status }

func activeServices(items []api.Service) []api.Service {
	return lfm.SortBy(lfm.Filter(items, lfm.FlagIs(serviceActive, "true")), serviceOrder)
}

func activeProducts(items []api.Product) []api.Product {
	return lfm.Filter(items, lfm.FlagIs(productActive, "true"))
}

func activePartners(items []api.Partner) []api.Partner {
	return lfm.SortBy(lfm.Filter(items, lfm.FlagIs(partnerActive, "true")), partnerOrder)
}

func publishedStories(items []api.SuccessStory) []api.SuccessStory {
	return lfm.SortBy(lfm.Filter(items, lfm.FlagIs(storyPublished, "true")), storyOrder)
}

// publishedPosts returns published posts, newest first.
func publishedPosts(items []api.BlogPost) []api.BlogPost {
	out := lfm.Filter(items, lfm.StatusIs(postStatus, string(api.StatusPublished)))
	return lfm.SortBy(out, func(p api.BlogPost) int64 {
		return -publishedAt(p).Unix()
	})
}

func publishedAt(p api.BlogPost) time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

// RelatedPosts finds posts sharing a tag or the category with current,
// those sharing a tag first.
func RelatedPosts(current api.BlogPost, posts []api.BlogPost, limit int) []api.BlogPost {
	tagSet := make(map[api.ID]struct{}, len(current.Tags))
	for _, t := range current.Tags {
		tagSet[t.ID] = struct{}{}
	}
	for _, id := range current.TagIDs {
		tagSet[id] = struct{}{}
	}
	var byTag, byCategory []api.BlogPost
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		if sharesTag(p, tagSet) {
			byTag = append(byTag, p)
			continue
		}
		if current.CategoryID != "" && p.CategoryID == current.CategoryID {
			byCategory = append(byCategory, p)
		}
	}
	related := append(byTag, byCategory...)
	if limit > 0 && len(related) > limit {
		related = related[:limit]
	}
	return related
}

func sharesTag(p api.BlogPost, tags map[api.ID]struct{}) bool {
	for _, t := range p.Tags {
		if _, ok := tags[t.ID]; ok {
			return true
		}
	}
	for _, id := range p.TagIDs {
		if _, ok := tags[id]; ok {
			return true
		}
	}
	return false
}

// MedicalClinicJsonLD returns a JSON-LD string describing the center.
func MedicalClinicJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "MedicalClinic",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	}
	if cfg.Phone != "" {
		data["telephone"] = cfg.Phone
	}
	if cfg.Email != "" {
		data["email"] = cfg.Email
	}
	if cfg.Address != "" {
		data["address"] = cfg.Address
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ArticleJsonLD returns a JSON-LD string for a blog post.
func ArticleJsonLD(post api.BlogPost, cfg SiteConfig, image string) string {
	postURL := BuildURL(cfg.URL, "blog", post.Slug)
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Title,
		"description": post.Excerpt,
		"url":         postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
		"publisher": map[string]string{
			"@type": "MedicalOrganization",
			"name":  cfg.Name,
		},
	}
	if t := publishedAt(post); !t.IsZero() {
		data["datePublished"] = t.Format(time.RFC3339)
	}
	if image != "" {
		data["image"] = image
	}
	if len(post.Tags) > 0 {
		names := make([]string, 0, len(post.Tags))
		for _, t := range post.Tags {
			names = append(names, t.Name)
		}
		data["keywords"] = strings.Join(names, ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
