package singbox

import "strings"

// Region places servers whose tag carries Flag into Groups.
type Region struct {
	Flag   string
	Label  string
	Groups []string
}

// Rules describes the layout of the Pro configuration.
type Rules struct {
	// Regions are tried in order; the first flag found in a tag wins.
	Regions []Region
	// RegionalGroups are the groups rebuilt from the subscription, in
	// the order new servers are appended.
	RegionalGroups []string
	// CustomServers are self-hosted outbounds that survive every update
	// and are removed from the shareable variant.
	CustomServers []string
	// AppGroups are dropped from the personal variant.
	AppGroups []string
	Proxy     string
	AllServer string
}

func DefaultRules() Rules {
	return Rules{
		Regions: []Region{
			{Flag: "🇭🇰", Label: "HK", Groups: []string{"HKonly", "AllServer"}},
			{Flag: "🇨🇳", Label: "TW", Groups: []string{"HKonly", "AllServer"}},
			{Flag: "🇸🇬", Label: "SG", Groups: []string{"SGonly", "AllServer"}},
			{Flag: "🇯🇵", Label: "JP", Groups: []string{"AllServer"}},
			{Flag: "🇺🇸", Label: "US", Groups: []string{"USonly", "AllServer"}},
		},
		RegionalGroups: []string{"HKonly", "SGonly", "USonly", "AllServer"},
		CustomServers:  []string{"SGNowaHomePlus", "SGoffice"},
		AppGroups:      []string{"AIDefault", "YouTube", "Netflix", "Apple", "USonly"},
		Proxy:          "Proxy",
		AllServer:      "AllServer",
	}
}

// Classification is a subscription split by regional group.
type Classification struct {
	Groups map[string][]Outbound
	// Counts is the number of servers per region flag.
	Counts map[string]int
	Total  int
}

// Tags returns the server tags classified into group.
func (c Classification) Tags(group string) []string {
	servers := c.Groups[group]
	tags := make([]string, 0, len(servers))
	for _, s := range servers {
		tags = append(tags, s.Tag())
	}
	return tags
}

func (r Rules) regionOf(tag string) (Region, bool) {
	for _, reg := range r.Regions {
		if strings.Contains(tag, reg.Flag) {
			return reg, true
		}
	}
	return Region{}, false
}

func (r Rules) isCustom(tag string) bool {
	for _, c := range r.CustomServers {
		if c == tag {
			return true
		}
	}
	return false
}

// Classify sorts the subscription servers into the regional groups.
// Servers without a known flag are left out.
func (r Rules) Classify(sub Document) Classification {
	c := Classification{
		Groups: make(map[string][]Outbound),
		Counts: make(map[string]int),
	}
	obs := sub.Outbounds()
	c.Total = len(obs)

	for _, o := range obs {
		reg, ok := r.regionOf(o.Tag())
		if !ok {
			continue
		}
		for _, g := range reg.Groups {
			c.Groups[g] = append(c.Groups[g], o)
		}
		c.Counts[reg.Flag]++
	}
	return c
}

// CustomMembership maps each custom server to the groups that list it.
func (r Rules) CustomMembership(doc Document) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, o := range doc.Outbounds() {
		if !o.IsGroup() {
			continue
		}
		for _, member := range o.Members() {
			if !r.isCustom(member) {
				continue
			}
			if out[member] == nil {
				out[member] = make(map[string]bool)
			}
			out[member][o.Tag()] = true
		}
	}
	return out
}

// GroupUpdate describes how one regional group was rebuilt.
type GroupUpdate struct {
	Group        string
	Subscription int
	Custom       int
}

type UpdateReport struct {
	Groups    []GroupUpdate
	Removed   int
	Added     int
	Outbounds int
	// Custom maps each preserved custom server to its groups.
	Custom map[string]map[string]bool
}

// Update replaces the subscription servers of base with those of c and
// rebuilds the regional groups. Custom servers keep their definitions
// and their group memberships. base is not modified.
func (r Rules) Update(base Document, c Classification) (Document, UpdateReport) {
	doc := base.Clone()
	custom := r.CustomMembership(base)
	report := UpdateReport{Custom: custom}

	var fresh []Outbound
	freshTags := make(map[string]bool)
	for _, g := range r.RegionalGroups {
		for _, s := range c.Groups[g] {
			if freshTags[s.Tag()] {
				continue
			}
			freshTags[s.Tag()] = true
			fresh = append(fresh, Outbound(cloneValue(map[string]any(s)).(map[string]any)))
		}
	}

	kept := make([]Outbound, 0, len(doc.Outbounds())+len(fresh))
	for _, o := range doc.Outbounds() {
		if r.isStale(o, freshTags) {
			report.Removed++
			continue
		}
		kept = append(kept, o)
	}
	kept = append(kept, fresh...)
	report.Added = len(fresh)

	regional := make(map[string]bool, len(r.RegionalGroups))
	for _, g := range r.RegionalGroups {
		regional[g] = true
	}

	for _, o := range kept {
		group := o.Tag()
		if !regional[group] {
			continue
		}
		members := c.Tags(group)
		subCount := len(members)
		for _, name := range r.CustomServers {
			if custom[name][group] {
				members = append(members, name)
			}
		}
		o.SetMembers(members)
		report.Groups = append(report.Groups, GroupUpdate{
			Group:        group,
			Subscription: subCount,
			Custom:       len(members) - subCount,
		})
	}

	doc.SetOutbounds(kept)
	report.Outbounds = len(kept)
	return doc, report
}

// isStale reports whether o is a subscription server from an earlier
// bundle: it is replaced by a fresh one, or it is a region-flagged
// server that is not one of ours.
func (r Rules) isStale(o Outbound, fresh map[string]bool) bool {
	tag := o.Tag()
	if r.isCustom(tag) {
		return false
	}
	if fresh[tag] {
		return true
	}
	if o.IsGroup() {
		return false
	}
	_, flagged := r.regionOf(tag)
	return flagged
}
