package constraints

import "testing"

func TestVersionRangeAdmits(t *testing.T) {
	r, err := ParseVersionRange(">= 1.0.0, < 2.0.0")
	if err != nil {
		t.Fatalf("ParseVersionRange: %v", err)
	}

	cases := []struct {
		version string
		want    bool
	}{
		{"1.0.0", true},
		{"1.9.9", true},
		{"2.0.0", false},
		{"0.9.0", false},
	}
	for _, c := range cases {
		v := MustSemVer(c.version)
		if got := r.Admits(v); got != c.want {
			t.Errorf("Admits(%s) = %v, want %v", c.version, got, c.want)
		}
	}
}

func TestVersionRangeSpecificAndOverrideAll(t *testing.T) {
	v := MustSemVer("1.2.3")
	specific := Specific(v)
	if !specific.IsSpecific() || specific.IsGlobalOverride() {
		t.Fatalf("Specific() should be specific but not a global override")
	}

	ovr := OverrideAll(v)
	if !ovr.IsSpecific() || !ovr.IsGlobalOverride() {
		t.Fatalf("OverrideAll() should be both specific and a global override")
	}
	if !ovr.Admits(v) || ovr.Admits(MustSemVer("1.2.4")) {
		t.Fatalf("OverrideAll() should admit only the pinned version")
	}
}

func TestVersionRequirementInRangePrereleasePolicy(t *testing.T) {
	r, _ := ParseVersionRange(">= 1.0.0")
	req := NewVersionRequirement(r, NoPrereleases())

	stable := MustSemVer("1.0.0")
	pre := MustSemVer("1.1.0-beta")

	if !req.InRange(stable, false) {
		t.Errorf("stable version should be in range")
	}
	if req.InRange(pre, false) {
		t.Errorf("prerelease should be rejected under NoPrereleases policy")
	}
	if !req.InRange(pre, true) {
		t.Errorf("allowTransitivePrerelease should force-admit the prerelease")
	}

	reqAll := NewVersionRequirement(r, AllPrereleases())
	if !reqAll.InRange(pre, false) {
		t.Errorf("AllPrereleases policy should admit the prerelease")
	}
}

func TestFrameworkRestrictionAlgebra(t *testing.T) {
	net6 := RestrictTo("net6.0")
	net8 := RestrictTo("net8.0")
	both := RestrictTo("net6.0", "net8.0")

	if net6.IntersectsWith(net8) {
		t.Errorf("disjoint restrictions should not intersect")
	}
	if !net6.IntersectsWith(both) {
		t.Errorf("net6 should intersect with {net6, net8}")
	}
	if !NoRestriction().IntersectsWith(net6) {
		t.Errorf("NoRestriction should intersect with anything")
	}

	or := net6.Or(net8)
	if !or.Equal(both) {
		t.Errorf("Or should be the union: got %v want %v", or, both)
	}

	and := both.And(net6)
	if !and.Equal(net6) {
		t.Errorf("And should be the intersection: got %v want %v", and, net6)
	}
}
