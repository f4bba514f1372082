package thread

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyNormalize(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   Policy
	}{
		{"defaults kept", DefaultPolicy(), Policy{HardLimit: 280, SoftLimit: 500}},
		{"unset soft limit", Policy{HardLimit: 280}, Policy{HardLimit: 280, SoftLimit: 280}},
		{"soft below hard", Policy{HardLimit: 280, SoftLimit: 100}, Policy{HardLimit: 280, SoftLimit: 280}},
		{"zero hard limit", Policy{}, Policy{HardLimit: 280, SoftLimit: 280}},
		{"negative hard limit", Policy{HardLimit: -5, SoftLimit: 500}, Policy{HardLimit: 280, SoftLimit: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Normalize())
		})
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		length, hardLimit, want int
	}{
		{600, 280, 3},
		{540, 280, 2},
		{541, 280, 3},
		{0, 280, 0},
		{5, 10, 5},  // denominator clamped to 1
		{5, 3, 5},   // negative denominator clamped to 1
		{25, 15, 5}, // 25 / 5
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.length, tt.hardLimit), func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.length, tt.hardLimit))
		})
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "", Prefix(1, 3))
	assert.Equal(t, "2/3 ", Prefix(2, 3))
	assert.Equal(t, "5/3 ", Prefix(5, 3))
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "hello", StripPrefix("2/3 hello"))
	assert.Equal(t, "hello", StripPrefix("hello"))
	assert.Equal(t, "12/4 hello", StripPrefix("3/4 12/4 hello"))
	assert.Equal(t, "2/3hello", StripPrefix("2/3hello"))
}

func TestSplit_SingleSegment(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		result := Split("", DefaultPolicy())

		require.Len(t, result, 1)
		assert.Equal(t, Segment{Index: 0, Text: ""}, result[0])
		assert.False(t, result.IsThread())
	})

	t.Run("short text unchanged", func(t *testing.T) {
		text := "Short post!  With odd   spacing. "
		result := Split(text, DefaultPolicy())

		require.Len(t, result, 1)
		assert.Equal(t, text, result[0].Text)
	})

	t.Run("between hard and soft limit", func(t *testing.T) {
		text := strings.Repeat("Valuable extended content. ", 17)[:450]
		require.Equal(t, 450, Len(text))

		result := Split(text, DefaultPolicy())

		require.Len(t, result, 1)
		assert.Equal(t, text, result[0].Text)
	})

	t.Run("soft limit unset splits above hard limit", func(t *testing.T) {
		text := strings.Repeat("Valuable extended content. ", 17)[:450]

		result := Split(text, Policy{HardLimit: 280})

		assert.True(t, result.IsThread())
	})

	t.Run("exactly at soft limit", func(t *testing.T) {
		text := strings.Repeat("a", 500)

		result := Split(text, DefaultPolicy())

		require.Len(t, result, 1)
		assert.Equal(t, text, result[0].Text)
	})

	t.Run("whitespace only beyond soft limit", func(t *testing.T) {
		result := Split(strings.Repeat(" ", 600), DefaultPolicy())

		require.Len(t, result, 1)
		assert.Equal(t, "", result[0].Text)
	})

	t.Run("graphemes count as one character", func(t *testing.T) {
		// 300 thumbs-up emoji with skin tone modifier: 600 runes, 300 graphemes.
		text := strings.Repeat("👍🏽", 300)
		require.Equal(t, 300, Len(text))

		result := Split(text, DefaultPolicy())

		require.Len(t, result, 1)
	})
}

func TestSplit_Thread(t *testing.T) {
	t.Run("five sentences of prose", func(t *testing.T) {
		sentence := strings.Repeat("word ", 23) + "end."
		text := strings.Join([]string{sentence, sentence, sentence, sentence, sentence}, " ")
		require.Equal(t, 599, Len(text))

		result := Split(text, DefaultPolicy())

		require.Len(t, result, 3)
		assert.False(t, strings.HasPrefix(result[0].Text, "1/"))
		assert.True(t, strings.HasPrefix(result[1].Text, "2/3 "))
		assert.True(t, strings.HasPrefix(result[2].Text, "3/3 "))
		for i, seg := range result {
			assert.Equal(t, i, seg.Index)
			assert.LessOrEqual(t, seg.CharCount(), 280)
		}
		assert.Equal(t, sentence+" "+sentence, result[0].Text)
	})

	t.Run("estimate is not corrected", func(t *testing.T) {
		sentence := strings.Repeat("a", 199) + "."
		text := strings.Join([]string{sentence, sentence, sentence, sentence}, " ")
		require.Equal(t, 3, Estimate(Len(text), 280))

		result := Split(text, DefaultPolicy())

		require.Len(t, result, 4)
		assert.Equal(t, "4/3 "+sentence, result[3].Text)
	})

	t.Run("exclamation and question marks become periods", func(t *testing.T) {
		text := strings.Repeat("Is this long? ", 20) + strings.Repeat("Yes it is! ", 20)

		result := Split(text, Policy{HardLimit: 100})

		joined := strings.Join(result.Texts(), " ")
		assert.NotContains(t, joined, "?")
		assert.NotContains(t, joined, "!")
		assert.Contains(t, joined, "Is this long. ")
	})

	t.Run("final sentence does not get a double period", func(t *testing.T) {
		text := strings.Repeat("One more sentence here. ", 30) + "The end."

		result := Split(text, DefaultPolicy())

		last := result[len(result)-1].Text
		assert.True(t, strings.HasSuffix(last, "The end."), last)
		assert.False(t, strings.HasSuffix(last, ".."), last)
	})

	t.Run("final exclamation becomes a single period", func(t *testing.T) {
		text := strings.Repeat("One more sentence here. ", 30) + "The end!"

		result := Split(text, DefaultPolicy())

		last := result[len(result)-1].Text
		assert.True(t, strings.HasSuffix(last, "The end."), last)
		assert.NotContains(t, last, "!")
	})

	t.Run("no sentence punctuation", func(t *testing.T) {
		text := strings.Repeat("lorem ipsum ", 50)

		result := Split(text, DefaultPolicy())

		require.True(t, result.IsThread())
		for _, seg := range result {
			assert.LessOrEqual(t, seg.CharCount(), 280)
		}
	})

	t.Run("single word longer than the limit", func(t *testing.T) {
		text := strings.Repeat("x", 700)

		result := Split(text, DefaultPolicy())

		require.Len(t, result, 3)
		assert.Equal(t, strings.Repeat("x", 280), result[0].Text)
		assert.Equal(t, "2/3 "+strings.Repeat("x", 276), result[1].Text)
		assert.Equal(t, "3/3 "+strings.Repeat("x", 144)+".", result[2].Text)
	})

	t.Run("degenerate hard limit", func(t *testing.T) {
		text := "Hello world. This is fine. And this too."

		result := Split(text, Policy{HardLimit: 10})

		require.True(t, result.IsThread())
		for _, seg := range result {
			assert.LessOrEqual(t, seg.CharCount(), 10, seg.Text)
		}
	})
}

// randomText builds prose from short words and returns it together with the
// sentences it is made of, without their terminal punctuation.
func randomText(r *rand.Rand) (string, []string) {
	words := []string{"go", "thread", "post", "café", "naïve", "👍🏽", "résumé", "x", "splitting", "segment", "日本語"}
	terminals := []string{".", "!", "?"}

	n := r.Intn(30)
	sentences := make([]string, n)
	parts := make([]string, n)
	for i := range n {
		count := 1 + r.Intn(25)
		ws := make([]string, count)
		for j := range ws {
			ws[j] = words[r.Intn(len(words))]
		}
		sentences[i] = strings.Join(ws, " ")
		parts[i] = sentences[i] + terminals[r.Intn(len(terminals))]
	}
	return strings.Join(parts, " "), sentences
}

func TestSplit_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	policies := []Policy{
		DefaultPolicy(),
		{HardLimit: 280},
		{HardLimit: 100, SoftLimit: 150},
		{HardLimit: 40},
	}

	for i := range 300 {
		text, sentences := randomText(r)
		policy := policies[i%len(policies)]
		p := policy.Normalize()

		result := Split(text, policy)
		require.NotEmpty(t, result)

		length := Len(text)
		if length <= p.SoftLimit {
			require.Len(t, result, 1)
			assert.Equal(t, text, result[0].Text)
			continue
		}

		estimate := Estimate(length, p.HardLimit)
		var stripped []string
		for j, seg := range result {
			assert.Equal(t, j, seg.Index)
			assert.LessOrEqual(t, seg.CharCount(), p.HardLimit, "segment %d of %q", j, text)
			if j == 0 {
				assert.NotRegexp(t, `^\d+/\d+ `, seg.Text)
				stripped = append(stripped, seg.Text)
				continue
			}
			prefix := fmt.Sprintf("%d/%d ", j+1, estimate)
			require.True(t, strings.HasPrefix(seg.Text, prefix), "segment %d %q lacks %q", j, seg.Text, prefix)
			stripped = append(stripped, strings.TrimPrefix(seg.Text, prefix))
		}

		var expected []string
		for _, s := range sentences {
			expected = append(expected, s+".")
		}
		assert.Equal(t,
			strings.Fields(strings.Join(expected, " ")),
			strings.Fields(strings.Join(stripped, " ")),
			"content of %q", text)
	}
}

func TestThread(t *testing.T) {
	t.Run("from texts", func(t *testing.T) {
		th := FromTexts([]string{"first", "2/2 second"})

		require.Equal(t, 2, th.Len())
		assert.True(t, th.IsThread())
		assert.Equal(t, []string{"first", "2/2 second"}, th.Texts())
		assert.Equal(t, 1, th[1].Index)
	})

	t.Run("from no texts", func(t *testing.T) {
		th := FromTexts(nil)

		require.Equal(t, 1, th.Len())
		assert.Equal(t, "", th[0].Text)
	})

	t.Run("replace keeps order", func(t *testing.T) {
		th := FromTexts([]string{"a", "b", "c"})

		require.NoError(t, th.Replace(1, "edited"))

		assert.Equal(t, []string{"a", "edited", "c"}, th.Texts())
		assert.Equal(t, 1, th[1].Index)
	})

	t.Run("replace out of range", func(t *testing.T) {
		th := FromTexts([]string{"a"})

		err := th.Replace(3, "x")
		assert.ErrorIs(t, err, ErrIndexOutOfRange)

		err = th.Replace(-1, "x")
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("char count uses graphemes", func(t *testing.T) {
		assert.Equal(t, 5, Segment{Text: "café!"}.CharCount())
		assert.Equal(t, 1, Segment{Text: "👍🏽"}.CharCount())
	})
}
