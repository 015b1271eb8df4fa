package interceptors

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	authdomain "github.com/projectNEWM/newm-server-sub005/internal/auth/domain"
	authservice "github.com/projectNEWM/newm-server-sub005/internal/auth/service"
	identitydomain "github.com/projectNEWM/newm-server-sub005/internal/identity/domain"
	"github.com/projectNEWM/newm-server-sub005/internal/security"
	"github.com/projectNEWM/newm-server-sub005/internal/signature"
)

const bearerPrefix = "bearer "

// Authenticator is the slice of the orchestrator the interceptor needs.
type Authenticator interface {
	Authenticate(ctx context.Context, req *authservice.Request) (*identitydomain.Identity, error)
}

// AuthUnary returns a unary server interceptor that authenticates each RPC.
// Signed-request headers (x-public-key / x-nonce / x-signature) are handed to
// the orchestrator; a Bearer access token is validated locally. publicMethods
// is the set of full method names requiring neither (e.g. login RPCs, health).
func AuthUnary(orchestrator Authenticator, tokens *security.TokenProvider, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		public := publicMethods[info.FullMethod]

		if signedReq, ok, err := extractSignedRequest(ctx, info.FullMethod); ok {
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, "malformed signed request headers")
			}
			identity, err := orchestrator.Authenticate(ctx, signedReq)
			if err != nil {
				return nil, rejectionStatus(err)
			}
			return handler(WithIdentity(ctx, identity.ID), req)
		}

		if token := extractBearer(ctx); token != "" {
			identityID, err := tokens.ValidateAccess(token)
			if err != nil {
				if public {
					return handler(ctx, req)
				}
				return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
			}
			return handler(WithIdentity(ctx, identityID), req)
		}

		if public {
			return handler(ctx, req)
		}
		return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
}

// rejectionStatus maps a typed rejection to a gRPC status. The message is the
// rejection's opaque class message; fine-grained reasons never leave the server.
func rejectionStatus(err error) error {
	var rej *authdomain.Rejection
	if !errors.As(err, &rej) {
		return status.Error(codes.Internal, "authentication failed")
	}
	switch rej.Class {
	case authdomain.MalformedInput:
		return status.Error(codes.InvalidArgument, rej.Error())
	case authdomain.ChallengeRequired:
		return status.Error(codes.PermissionDenied, rej.Error())
	case authdomain.TransientUpstreamFailure:
		return status.Error(codes.Unavailable, rej.Error())
	default:
		return status.Error(codes.Unauthenticated, rej.Error())
	}
}

// extractSignedRequest builds an orchestrator request from the signed-request
// headers. ok is false when none of the three marker headers are present;
// err is non-nil when markers are present but unparseable.
func extractSignedRequest(ctx context.Context, fullMethod string) (*authservice.Request, bool, error) {
	md, mdOK := metadata.FromIncomingContext(ctx)
	if !mdOK {
		return nil, false, nil
	}
	publicKeyB64 := headerValue(md, signature.HeaderPublicKey)
	nonce := headerValue(md, signature.HeaderNonce)
	signatureB64 := headerValue(md, signature.HeaderSignature)
	if publicKeyB64 == "" && nonce == "" && signatureB64 == "" {
		return nil, false, nil
	}

	publicKey, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, true, err
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return nil, true, err
	}
	var ts time.Time
	if raw := headerValue(md, signature.HeaderTimestamp); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, true, err
		}
		ts = time.Unix(secs, 0).UTC()
	}
	var digest []byte
	if raw := headerValue(md, signature.HeaderBodyDigest); raw != "" {
		digest, err = hex.DecodeString(raw)
		if err != nil {
			return nil, true, err
		}
	}
	return &authservice.Request{
		Source:       SourceAddr(ctx),
		Platform:     headerValue(md, "x-platform"),
		PublicKey:    publicKey,
		KeyAlgorithm: headerValue(md, signature.HeaderAlgorithm),
		Nonce:        nonce,
		Signature:    sig,
		Method:       "POST",
		Path:         fullMethod,
		BodyDigest:   digest,
		Timestamp:    ts,
	}, true, nil
}

func headerValue(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// SourceAddr parses the client IP from metadata or peer into an address the
// abuse gate can match against its whitelist. Unparseable sources yield the
// zero Addr, which matches no whitelist range.
func SourceAddr(ctx context.Context) netip.Addr {
	addr, err := netip.ParseAddr(ClientIP(ctx))
	if err != nil {
		return netip.Addr{}
	}
	return addr
}
