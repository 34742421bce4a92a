package corevdb

// normalizeMetadata ensures metadata is object-shaped so the session's
// two reserved fields always have somewhere to live (§3): a non-object
// value is wrapped as {"_userMetadata": value}. The caller-supplied
// object (if any) is shallow-copied so the session never aliases the
// caller's map.
func normalizeMetadata(raw interface{}) map[string]interface{} {
	if obj, ok := raw.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(obj)+1)
		for k, v := range obj {
			out[k] = v
		}
		return out
	}
	return map[string]interface{}{fieldUserMetadata: raw}
}

// withOriginalID stamps meta (already object-shaped) with the
// caller's external id, overwriting any caller-supplied value at that
// key without warning (§9, reserved metadata keys).
func withOriginalID(meta map[string]interface{}, externalID string) map[string]interface{} {
	meta[fieldOriginalID] = externalID
	return meta
}

// originalID extracts the caller's external id from a stored metadata
// value. Returns ("", false) if the value is not object-shaped or the
// field is absent, which should not happen for anything the session
// itself wrote.
func originalID(meta interface{}) (string, bool) {
	obj, ok := meta.(map[string]interface{})
	if !ok {
		return "", false
	}
	id, ok := obj[fieldOriginalID].(string)
	return id, ok
}
