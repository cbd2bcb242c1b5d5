package signature_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"repogator.app/relay/internal/signature"
)

var _ = Describe("Verify", func() {
	const secret = "It's a Secret to Everybody"
	body := []byte("Hello, World!")

	It("accepts the documented GitHub example", func() {
		header := "sha256=757107ea0eb2509fc211221cce984b8a37570b6d7586c22c46f4379c8b043e17"
		Expect(signature.Verify(secret, body, header)).To(Succeed())
	})

	It("accepts what Sign produces", func() {
		Expect(signature.Verify(secret, body, signature.Sign(secret, body))).To(Succeed())
	})

	It("rejects a body that differs by one byte", func() {
		header := signature.Sign(secret, body)
		Expect(signature.Verify(secret, []byte("Hello, World?"), header)).To(MatchError(signature.ErrSignatureMismatch))
	})

	It("rejects a re-serialized body", func() {
		raw := []byte(`{"a": 1}`)
		header := signature.Sign(secret, raw)
		Expect(signature.Verify(secret, []byte(`{"a":1}`), header)).To(MatchError(signature.ErrSignatureMismatch))
	})

	It("rejects a different secret", func() {
		header := signature.Sign("other", body)
		Expect(signature.Verify(secret, body, header)).To(MatchError(signature.ErrSignatureMismatch))
	})

	DescribeTable("rejects unusable input",
		func(secret, header string, expected error) {
			Expect(signature.Verify(secret, body, header)).To(MatchError(expected))
		},
		Entry("no secret for route", "", "sha256=00", signature.ErrUnknownSecret),
		Entry("missing header", secret, "", signature.ErrMissingSignature),
		Entry("sha1 header", secret, "sha1=0123456789abcdef0123456789abcdef01234567", signature.ErrMalformedSignature),
		Entry("bare hex", secret, strings.Repeat("a", 64), signature.ErrMalformedSignature),
		Entry("not hex", secret, "sha256="+strings.Repeat("z", 64), signature.ErrMalformedSignature),
		Entry("truncated digest", secret, "sha256=757107ea", signature.ErrMalformedSignature),
	)
})
