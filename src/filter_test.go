package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSelectionModes(t *testing.T) {
	testCases := []struct {
		name string
		args argumentList
		mode selectionMode
	}{
		{"empty filter defaults to name mode", argumentList{}, byName},
		{"name patterns", argumentList{Name: "web*,db??"}, byName},
		{"location and tags combine with names", argumentList{Name: "web*", Location: "QA/Test", Tag: "prod"}, byName},
		{"datastore", argumentList{Datastore: "ISO_Volume"}, byDatastore},
		{"virtual switch", argumentList{VirtualSwitch: "VM Network"}, byVirtualSwitch},
		{"related object", argumentList{RelatedObject: "ResourcePool:Resources"}, byRelatedObject},
		{"ids", argumentList{ID: "vm-42,vm-43"}, byID},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			filter, err := filterFromArgs(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.mode, filter.mode())
		})
	}
}

func TestFilterRejectsMixedSelectors(t *testing.T) {
	testCases := []struct {
		name string
		args argumentList
	}{
		{"name with datastore", argumentList{Name: "web*", Datastore: "ISO_Volume"}},
		{"id with name", argumentList{ID: "vm-42", Name: "web*"}},
		{"id with datastore", argumentList{ID: "vm-42", Datastore: "ISO_Volume"}},
		{"related object with tag", argumentList{RelatedObject: "ResourcePool:Resources", Tag: "prod"}},
		{"related object with norecursion", argumentList{RelatedObject: "ResourcePool:Resources", NoRecursion: true}},
		{"datastore with virtual switch", argumentList{Datastore: "ISO_Volume", VirtualSwitch: "VM Network"}},
		{"norecursion with id", argumentList{NoRecursion: true, ID: "vm-42"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := filterFromArgs(tc.args)
			assert.Error(t, err)
		})
	}
}

func TestFilterRelatedObjectParsing(t *testing.T) {
	filter, err := filterFromArgs(argumentList{RelatedObject: "VirtualApp:my-vapp"})
	require.NoError(t, err)
	assert.Equal(t, "VirtualApp", filter.RelatedType)
	assert.Equal(t, "my-vapp", filter.RelatedName)

	_, err = filterFromArgs(argumentList{RelatedObject: "my-vapp"})
	assert.Error(t, err, "missing type prefix")

	_, err = filterFromArgs(argumentList{RelatedObject: "Datastore:ds1"})
	assert.Error(t, err, "unsupported related object type")
}

func TestFilterRejectsMalformedPattern(t *testing.T) {
	_, err := filterFromArgs(argumentList{Name: "web["})
	assert.Error(t, err)
}

func TestMatchesName(t *testing.T) {
	filter, err := filterFromArgs(argumentList{Name: "testvm*,db??"})
	require.NoError(t, err)

	assert.True(t, filter.matchesName("TestVM001"), "matching is case-insensitive")
	assert.True(t, filter.matchesName("db01"))
	assert.False(t, filter.matchesName("db001"))
	assert.False(t, filter.matchesName("web01"))

	all, err := filterFromArgs(argumentList{})
	require.NoError(t, err)
	assert.True(t, all.matchesName("anything"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a , b ,"))
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , "))
}
