package similarity

// keyGroups is an insertion-ordered multimap from key to unit IDs.
type keyGroups struct {
	order []string
	ids   map[string][]int
}

func newKeyGroups() *keyGroups {
	return &keyGroups{ids: make(map[string][]int)}
}

func (g *keyGroups) add(key string, id int) {
	if _, ok := g.ids[key]; !ok {
		g.order = append(g.order, key)
	}
	g.ids[key] = append(g.ids[key], id)
}

// Clusterer groups units by strategy key.
type Clusterer struct {
	strategy Strategy
	groups   *keyGroups
	dropped  []int
}

// NewClusterer creates a Clusterer for s.
func NewClusterer(s Strategy) *Clusterer {
	return &Clusterer{strategy: s, groups: newKeyGroups()}
}

// Prepare computes a key for every unit. A unit whose key cannot be
// computed is dropped; its ID is recorded in Dropped.
func (c *Clusterer) Prepare(units []CodeUnit) {
	c.groups = newKeyGroups()
	c.dropped = nil
	for _, u := range units {
		key, err := c.strategy.Key(u)
		if err != nil {
			c.dropped = append(c.dropped, u.ID)
			continue
		}
		c.groups.add(key, u.ID)
	}
}

// Dropped returns the IDs of units skipped by the last Prepare.
func (c *Clusterer) Dropped() []int {
	return c.dropped
}

// FindClusters turns every key shared by two or more units into a cluster,
// numbered in order of the key's first appearance, plus one match for
// each member pair.
func (c *Clusterer) FindClusters() ([]Cluster, []Match) {
	name := string(c.strategy.Name())
	clusters := make([]Cluster, 0)
	matches := make([]Match, 0)

	for _, key := range c.groups.order {
		members := c.groups.ids[key]
		if len(members) < 2 {
			continue
		}
		clusters = append(clusters, Cluster{
			ID:       len(clusters),
			Members:  append([]int(nil), members...),
			Strategy: name,
			ScoreMin: 1.0,
			ScoreMax: 1.0,
		})
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				matches = append(matches, Match{
					A:        members[i],
					B:        members[j],
					Score:    1.0,
					Strategy: name,
				})
			}
		}
	}
	return clusters, matches
}
