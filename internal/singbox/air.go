package singbox

// Outbounds that route rules may always point at.
var builtinOutbounds = map[string]bool{
	"direct":  true,
	"block":   true,
	"dns-out": true,
}

// AirPersonal derives the personal variant: the per-app groups are
// dropped and no group lists them any more, the Proxy selector stops
// offering AllServer, and route rules that send traffic to a dropped
// group are removed.
func (r Rules) AirPersonal(pro Document) Document {
	doc := pro.Clone()

	removed := make(map[string]bool, len(r.AppGroups))
	for _, g := range r.AppGroups {
		removed[g] = true
	}

	var kept []Outbound
	for _, o := range doc.Outbounds() {
		if removed[o.Tag()] {
			continue
		}
		if o.IsGroup() {
			var members []string
			for _, m := range o.Members() {
				if removed[m] || (o.Tag() == r.Proxy && m == r.AllServer) {
					continue
				}
				members = append(members, m)
			}
			o.SetMembers(members)
		}
		kept = append(kept, o)
	}
	doc.SetOutbounds(kept)

	route, ok := doc["route"].(map[string]any)
	if !ok {
		return doc
	}
	if rules, ok := route["rules"].([]any); ok {
		filtered := make([]any, 0, len(rules))
		for _, rule := range rules {
			m, isMap := rule.(map[string]any)
			if isMap {
				if out, _ := m["outbound"].(string); !builtinOutbounds[out] && references(m, removed) {
					continue
				}
			}
			filtered = append(filtered, rule)
		}
		route["rules"] = filtered
	}
	if final, _ := route["final"].(string); removed[final] {
		route["final"] = r.Proxy
	}
	return doc
}

// AirFriend derives the shareable variant: every custom server is
// removed from the groups and from the outbounds.
func (r Rules) AirFriend(pro Document) Document {
	doc := pro.Clone()

	var kept []Outbound
	for _, o := range doc.Outbounds() {
		if r.isCustom(o.Tag()) {
			continue
		}
		if o.IsGroup() {
			var members []string
			for _, m := range o.Members() {
				if !r.isCustom(m) {
					members = append(members, m)
				}
			}
			o.SetMembers(members)
		}
		kept = append(kept, o)
	}
	doc.SetOutbounds(kept)
	return doc
}

// references reports whether any string inside v names one of tags.
func references(v any, tags map[string]bool) bool {
	switch x := v.(type) {
	case string:
		return tags[x]
	case map[string]any:
		for _, item := range x {
			if references(item, tags) {
				return true
			}
		}
	case []any:
		for _, item := range x {
			if references(item, tags) {
				return true
			}
		}
	}
	return false
}
