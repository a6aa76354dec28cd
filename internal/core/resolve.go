package core

// ResolveReferences rewrites the foreign key fields of rec in place using ids.
// A reference that cannot be resolved is set to nil so the row can still be
// inserted. Each hit increments exactly one counter in stats.
func ResolveReferences(rec Record, td TableDescriptor, ids *IDMapper, stats *MappingStats) {
	for field, refTable := range td.ForeignKeys {
		v, present := rec[field]
		if !present || v == nil {
			continue
		}

		newID, via := ids.Resolve(refTable, v)
		switch via {
		case lookupOldID:
			rec[field] = newID
			stats.ByOldID++
		case lookupLegacyID:
			rec[field] = newID
			stats.ByLegacyID++
		default:
			rec[field] = nil
		}
	}
}
